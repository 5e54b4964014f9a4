package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatEvent is the immutable record of one inbound message. The sequence
// number and timestamp are server-assigned; client clocks are never trusted.
type ChatEvent struct {
	ID         uuid.UUID
	Room       RoomID
	SenderID   string
	SenderName string
	Content    string
	Language   string
	Emotion    Emotion
	Sequence   uint64
	At         time.Time
}

// DerivedMessage is the rendering of one ChatEvent for a single target
// language. IsOriginal is true only when the target language equals the
// event's language, in which case Content equals the original text.
// TranslationFailed marks the degraded path: the translator failed or timed
// out for this language and recipients get the original text instead.
type DerivedMessage struct {
	Event             ChatEvent
	TargetLanguage    string
	Content           string
	IsOriginal        bool
	TranslationFailed bool
}

// Original builds the DerivedMessage for the event's own language.
func Original(evt ChatEvent) DerivedMessage {
	return DerivedMessage{
		Event:          evt,
		TargetLanguage: evt.Language,
		Content:        evt.Content,
		IsOriginal:     true,
	}
}

// Translated builds the DerivedMessage for a foreign target language.
func Translated(evt ChatEvent, targetLanguage, content string, failed bool) DerivedMessage {
	d := DerivedMessage{
		Event:             evt,
		TargetLanguage:    targetLanguage,
		Content:           content,
		TranslationFailed: failed,
	}
	if failed {
		d.Content = evt.Content
	}
	return d
}
