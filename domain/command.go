package domain

import "time"

// Command is an inbound event handled by a room controller. All commands for
// one room are processed by a single goroutine, which is what keeps sequence
// numbering and roster broadcasts consistent.
type Command interface {
	RoomID() RoomID
}

// PostMessageCommand carries one chat message from an active participant.
// Voice messages arrive here too, after transcription at the transport edge.
// Language is set only on the voice path, carrying the language the
// speech-to-text backend detected; plain text always uses the sender's
// declared language.
type PostMessageCommand struct {
	Room      RoomID
	SenderID  string
	Content   string
	Language  string
	CreatedAt time.Time
}

func (c PostMessageCommand) RoomID() RoomID { return c.Room }

// TypingCommand is a best-effort indicator. Never translated, never persisted.
type TypingCommand struct {
	Room          RoomID
	ParticipantID string
	IsTyping      bool
}

func (c TypingCommand) RoomID() RoomID { return c.Room }

// LeaveCommand removes a participant, whether the leave was explicit, the
// connection closed, or the idle timeout fired.
type LeaveCommand struct {
	Room          RoomID
	ParticipantID string
	Reason        string
}

func (c LeaveCommand) RoomID() RoomID { return c.Room }
