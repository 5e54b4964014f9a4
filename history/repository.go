// Package history persists derived messages for the session-history
// collaborator and serves cursor-paginated reads plus full-text search for
// the diagnostics API. Recording is fire-and-forget; the fan-out hot path
// never waits on disk.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"babel-relay/domain"
)

// StoredMessage is the on-disk rendering of one DerivedMessage.
type StoredMessage struct {
	ID                uuid.UUID `json:"id"`
	Room              string    `json:"room"`
	SenderID          string    `json:"sender_id"`
	Content           string    `json:"content"`
	OriginalContent   string    `json:"original_content"`
	Language          string    `json:"language"`
	IsOriginal        bool      `json:"is_original"`
	TranslationFailed bool      `json:"translation_failed"`
	Emotion           string    `json:"emotion"`
	Sequence          uint64    `json:"sequence"`
	At                time.Time `json:"at"`
}

func fromDerived(room domain.RoomID, d domain.DerivedMessage) StoredMessage {
	return StoredMessage{
		ID:                d.Event.ID,
		Room:              string(room),
		SenderID:          d.Event.SenderID,
		Content:           d.Content,
		OriginalContent:   d.Event.Content,
		Language:          d.TargetLanguage,
		IsOriginal:        d.IsOriginal,
		TranslationFailed: d.TranslationFailed,
		Emotion:           string(d.Event.Emotion),
		Sequence:          d.Event.Sequence,
		At:                d.Event.At,
	}
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Store persists one message. The key is "msg:{room}:{timestamp_padded}:{uuid}:{lang}":
//  1. 19-digit zero padding keeps keys in chronological order lexicographically.
//  2. The uuid/lang suffix disambiguates renderings of the same event written
//     in the same nanosecond.
func (m MessageRepository) Store(msg StoredMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s:%s",
		msg.Room,
		msg.At.UnixNano(),
		msg.ID,
		msg.Language,
	)
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// GetMessages pages backwards through a room's history, newest first. The
// returned cursor resumes the scan; nil means the beginning was reached.
func (m MessageRepository) GetMessages(room string, cursor *string) ([]StoredMessage, *string, error) {
	var messages []StoredMessage
	var lastKey string

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", room)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				var msg StoredMessage
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if m.limitMessages != nil && len(messages) == *m.limitMessages && lastKey != "" {
		return messages, &lastKey, nil
	}
	return messages, nil, nil
}
