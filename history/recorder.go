package history

import (
	"context"
	"fmt"
	"log/slog"

	"babel-relay/contract"
	"babel-relay/domain"
)

var (
	_ contract.IHistoryRecorder = (*Recorder)(nil)
	_ contract.Worker           = (*Recorder)(nil)
)

type batch struct {
	room     domain.RoomID
	messages []domain.DerivedMessage
}

// Recorder decouples the fan-out path from disk and index writes. Record
// enqueues and returns immediately; a full queue drops the batch with a log
// line rather than applying backpressure to a room.
type Recorder struct {
	repo    MessageRepository
	index   *Index
	batches chan batch
	log     *slog.Logger
}

func NewRecorder(repo MessageRepository, index *Index, bufferSize int, log *slog.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		index:   index,
		batches: make(chan batch, bufferSize),
		log:     log,
	}
}

func (r *Recorder) Record(room domain.RoomID, messages []domain.DerivedMessage) {
	if len(messages) == 0 {
		return
	}
	select {
	case r.batches <- batch{room: room, messages: messages}:
	default:
		r.log.Warn(fmt.Sprintf("History queue full, dropping %d messages for room %s",
			len(messages), room))
	}
}

func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case b, ok := <-r.batches:
			if !ok {
				return nil
			}
			r.persist(b)
		}
	}
}

// drain flushes whatever is already queued during shutdown.
func (r *Recorder) drain() {
	for {
		select {
		case b := <-r.batches:
			r.persist(b)
		default:
			return
		}
	}
}

func (r *Recorder) persist(b batch) {
	for _, d := range b.messages {
		msg := fromDerived(b.room, d)
		if err := r.repo.Store(msg); err != nil {
			r.log.Error("Failed to store message", "room", b.room, "error", err)
			continue
		}
		if r.index == nil {
			continue
		}
		if err := r.index.IndexMessage(msg); err != nil {
			r.log.Error("Failed to index message", "room", b.room, "error", err)
		}
	}
}
