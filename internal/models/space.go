package models

import (
	"time"

	"github.com/google/uuid"
)

// Space states. A space is Live iff it has a current session and a room URL.
const (
	StateLive    = "Live"
	StateOffline = "Offline"
)

// LiveSpace is the per-host ledger row: is this host live, and where.
// Keyed by host slug (Farcaster username); one row per host, never deleted.
type LiveSpace struct {
	HostSlug         string     `json:"host_slug"`
	HostFid          string     `json:"host_fid"`
	State            string     `json:"state"`
	CurrentSessionID *uuid.UUID `json:"current_session_id,omitempty"`
	DailyRoomURL     *string    `json:"daily_room_url,omitempty"`
	ParticipantCount int        `json:"participant_count"`
	Title            *string    `json:"title,omitempty"`
	LastUpdated      time.Time  `json:"last_updated"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsLive reports whether the space is currently live.
func (s *LiveSpace) IsLive() bool {
	return s != nil && s.State == StateLive
}

// SpaceSession is one live occurrence of a space. Append-only history:
// created on go-live, closed (ended_at set) on end-space, never mutated after.
type SpaceSession struct {
	ID                uuid.UUID  `json:"id"`
	HostSlug          string     `json:"host_slug"`
	DailyRoomURL      string     `json:"daily_room_url"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	PeakParticipants  int        `json:"peak_participants"`
	TotalParticipants int        `json:"total_participants"`
	Title             *string    `json:"title,omitempty"`
}
