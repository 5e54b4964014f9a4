//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"babel-relay/domain"
	"babel-relay/domain/frame"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor recovers panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// FrameSink is the delivery side of one participant's connection. Deliver
// must be cheap and non-blocking for the caller: implementations enqueue into
// a buffered channel and report ErrSendBufferFull or ErrConnClosed instead of
// waiting on the network.
type FrameSink interface {
	Deliver(ctx context.Context, f frame.Frame) error
}

// IRoomController is the per-room actor. Join is synchronous so handshake
// errors reach the transport; everything else is fire-and-forget into the
// room's serialized command loop.
type IRoomController interface {
	Join(ctx context.Context, req domain.JoinRequest, sink FrameSink) error
	Submit(cmd domain.Command)
	Roster() []domain.Participant
	Len() int
}

// IRegistry is the process-wide room index: the single source of truth for
// which rooms exist. Rooms are created lazily and torn down once empty.
type IRegistry interface {
	GetOrCreate(id domain.RoomID) (IRoomController, error)
	Lookup(id domain.RoomID) (IRoomController, bool)
	RemoveIfEmpty(id domain.RoomID)
	ListRooms() []domain.RoomID
}

// ITranslator converts text between languages. Implementations may be slow
// and may fail; callers bound each call with a context deadline and must not
// assume synchronous low-latency behavior.
type ITranslator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// IEmotionDetector annotates a text with its dominant emotion.
type IEmotionDetector interface {
	Analyze(text string) domain.EmotionReading
}

// ITranscriber is the opaque speech-to-text collaborator: audio bytes in,
// text out, plus the language the backend detected.
type ITranscriber interface {
	Transcribe(ctx context.Context, audio []byte, languageHint string) (text, detectedLang string, err error)
}

// IHistoryRecorder hands derived messages to the history collaborator.
// Fire-and-forget: never blocks the fan-out hot path.
type IHistoryRecorder interface {
	Record(room domain.RoomID, messages []domain.DerivedMessage)
}

// IModerator censors forbidden words, returning the sanitized text and the
// normalized patterns that matched.
type IModerator interface {
	Censor(text string) (string, []string)
}
