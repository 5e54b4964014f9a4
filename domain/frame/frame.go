// Package frame defines the outbound wire frames delivered to clients.
// Frames are plain JSON objects; the room identifier travels in the
// connection path, never in a frame body.
package frame

import (
	"time"

	"babel-relay/domain"
)

const (
	TypeConnected     = "connected"
	TypeMessage       = "message"
	TypeUserJoined    = "user_joined"
	TypeUserLeft      = "user_left"
	TypeTyping        = "typing"
	TypeTranscription = "transcription"
	TypeError         = "error"
)

type Frame interface {
	FrameType() string
}

type RosterEntry struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name,omitempty"`
	Language      string    `json:"language"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Connected acknowledges a successful join and carries the current roster in
// join order.
type Connected struct {
	Type   string        `json:"type"`
	Room   string        `json:"room"`
	Roster []RosterEntry `json:"roster"`
}

func (Connected) FrameType() string { return TypeConnected }

func NewConnected(room domain.RoomID, roster []domain.Participant) Connected {
	entries := make([]RosterEntry, 0, len(roster))
	for _, p := range roster {
		entries = append(entries, RosterEntry{
			ParticipantID: p.ID,
			Name:          p.Name,
			Language:      p.Language,
			JoinedAt:      p.JoinedAt,
		})
	}
	return Connected{Type: TypeConnected, Room: string(room), Roster: entries}
}

// Message is the per-recipient rendering of one chat event. Content is in the
// recipient's declared language; OriginalContent always carries the sender's
// text for audit and display.
type Message struct {
	Type              string    `json:"type"`
	SenderID          string    `json:"sender_id"`
	SenderName        string    `json:"sender_name,omitempty"`
	Content           string    `json:"content"`
	OriginalContent   string    `json:"original_content"`
	Language          string    `json:"language"`
	IsOriginal        bool      `json:"is_original"`
	Sequence          uint64    `json:"sequence"`
	Timestamp         time.Time `json:"timestamp"`
	Emotion           string    `json:"emotion,omitempty"`
	TranslationFailed bool      `json:"translation_failed,omitempty"`
}

func (Message) FrameType() string { return TypeMessage }

func NewMessage(d domain.DerivedMessage) Message {
	return Message{
		Type:              TypeMessage,
		SenderID:          d.Event.SenderID,
		SenderName:        d.Event.SenderName,
		Content:           d.Content,
		OriginalContent:   d.Event.Content,
		Language:          d.TargetLanguage,
		IsOriginal:        d.IsOriginal,
		Sequence:          d.Event.Sequence,
		Timestamp:         d.Event.At,
		Emotion:           string(d.Event.Emotion),
		TranslationFailed: d.TranslationFailed,
	}
}

// Presence announces a membership change to the remaining members. The
// human-readable message is language-neutral; clients localize it.
type Presence struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name,omitempty"`
	Language      string `json:"language"`
	Message       string `json:"message"`
}

func (p Presence) FrameType() string { return p.Type }

func NewUserJoined(p domain.Participant) Presence {
	return Presence{
		Type:          TypeUserJoined,
		ParticipantID: p.ID,
		Name:          p.Name,
		Language:      p.Language,
		Message:       p.DisplayName() + " joined the room",
	}
}

func NewUserLeft(p domain.Participant) Presence {
	return Presence{
		Type:          TypeUserLeft,
		ParticipantID: p.ID,
		Name:          p.Name,
		Language:      p.Language,
		Message:       p.DisplayName() + " left the room",
	}
}

// Typing relays a best-effort typing indicator.
type Typing struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	IsTyping      bool   `json:"is_typing"`
}

func (Typing) FrameType() string { return TypeTyping }

func NewTyping(participantID string, isTyping bool) Typing {
	return Typing{Type: TypeTyping, ParticipantID: participantID, IsTyping: isTyping}
}

// Transcription echoes the speech-to-text result back to the speaker before
// the transcribed text enters the normal chat pipeline.
type Transcription struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (Transcription) FrameType() string { return TypeTranscription }

func NewTranscription(text, language string) Transcription {
	return Transcription{Type: TypeTranscription, Text: text, Language: language}
}

// Error reports a coded failure to one client.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Error) FrameType() string { return TypeError }

func NewError(code, message string) Error {
	return Error{Type: TypeError, Code: code, Message: message}
}
