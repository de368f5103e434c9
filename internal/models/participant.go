package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant roles within a session.
const (
	RoleHost     = "host"
	RoleSpeaker  = "speaker"
	RoleListener = "listener"
)

// Participant statuses. Records transition active -> left exactly once and
// are never deleted (append-only audit trail).
const (
	StatusActive = "active"
	StatusLeft   = "left"
)

// Participant is one user's presence record within one session.
// host_slug is denormalized so host-scoped queries avoid a join through sessions.
type Participant struct {
	ID                uuid.UUID  `json:"id"`
	SessionID         uuid.UUID  `json:"session_id"`
	HostSlug          string     `json:"host_slug"`
	UserFid           string     `json:"user_fid"`
	FarcasterUsername string     `json:"farcaster_username"`
	DisplayName       string     `json:"display_name"`
	PfpURL            string     `json:"pfp_url"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	JoinedAt          time.Time  `json:"joined_at"`
	LeftAt            *time.Time `json:"left_at,omitempty"`
	HeartbeatAt       time.Time  `json:"heartbeat_at"`
}

// ValidRole reports whether r is a known participant role.
func ValidRole(r string) bool {
	return r == RoleHost || r == RoleSpeaker || r == RoleListener
}
