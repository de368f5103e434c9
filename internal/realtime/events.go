package realtime

// Event names published on hub topics and relayed to WebSocket clients.
const (
	EventSpaceLive         = "space_live"
	EventSpaceOffline      = "space_offline"
	EventSpaceUpdated      = "space_updated"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventDirectoryChanged  = "directory_changed"
)
