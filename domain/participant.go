package domain

import "time"

// State tracks a participant's lifecycle inside a room.
// Joining participants become active after a successful handshake; a failed
// handshake goes straight to removed without any broadcast.
type State int

const (
	StateJoining State = iota
	StateActive
	StateLeaving
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "JOINING"
	case StateActive:
		return "ACTIVE"
	case StateLeaving:
		return "LEAVING"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Participant is one connected user within a room. The declared language is
// fixed for the lifetime of the connection; changing language means leaving
// and joining again.
type Participant struct {
	ID       string
	Name     string
	Language string
	State    State
	JoinedAt time.Time
}

// DisplayName falls back to the participant id when no name was declared.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// JoinRequest carries the validated contents of a join handshake.
type JoinRequest struct {
	ParticipantID string
	Name          string
	Language      string
}
