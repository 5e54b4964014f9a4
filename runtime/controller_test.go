package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/domain/frame"
	"babel-relay/emotion"
	"babel-relay/errors"
	"babel-relay/lang"
	"babel-relay/observability"
	"babel-relay/runtime/workers"
)

type fakeSink struct {
	mu     sync.Mutex
	frames []frame.Frame
	closed bool
}

func (s *fakeSink) Deliver(_ context.Context, f frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrConnClosed
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSink) Frames() []frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]frame.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *fakeSink) Messages() []frame.Message {
	var out []frame.Message
	for _, f := range s.Frames() {
		if m, ok := f.(frame.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

type fakeTranslator struct {
	mu       sync.Mutex
	calls    int
	failLang string
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, targetLang string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if targetLang == f.failLang {
		return "", fmt.Errorf("backend down")
	}
	return "[" + targetLang + "] " + text, nil
}

func (f *fakeTranslator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testRig struct {
	reg        *Registry
	translator *fakeTranslator
	monitor    *observability.Monitor
}

func newRig(t *testing.T, cfg RegistryConfig) *testRig {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	supervisor := workers.NewSupervisor(log)
	translator := &fakeTranslator{}
	monitor := observability.NewMonitor()

	reg := NewRegistry(Deps{
		Log:        log,
		Translator: translator,
		Emotions:   emotion.NewDetector(),
		Monitor:    monitor,
		Languages:  lang.NewSet([]string{"en", "es", "fr", "de"}),
	}, cfg, supervisor)
	supervisor.Add(reg)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})

	require.Eventually(t, func() bool {
		reg.mu.RLock()
		defer reg.mu.RUnlock()
		return reg.ctx != nil
	}, time.Second, 5*time.Millisecond)

	return &testRig{reg: reg, translator: translator, monitor: monitor}
}

func (r *testRig) join(t *testing.T, room, id, language string) (contract.IRoomController, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	ctrl, err := r.reg.Join(context.Background(), domain.RoomID(room),
		domain.JoinRequest{ParticipantID: id, Language: language}, sink)
	require.NoError(t, err)
	return ctrl, sink
}

func post(ctrl contract.IRoomController, room, sender, content string) {
	ctrl.Submit(domain.PostMessageCommand{
		Room:     domain.RoomID(room),
		SenderID: sender,
		Content:  content,
	})
}

func TestController_OneTranslationPerDistinctLanguage(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	// Given alice (en) with two spanish-speaking roommates
	ctrl, aliceSink := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "es")
	_, carolSink := rig.join(t, "r1", "carol", "es")

	// When alice posts one message
	post(ctrl, "r1", "alice", "Hello there my friend, how are you doing today")

	// Then bob and carol each receive the spanish rendering
	req.Eventually(func() bool {
		return len(bobSink.Messages()) == 1 && len(carolSink.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	msg := bobSink.Messages()[0]
	req.Equal("es", msg.Language)
	req.False(msg.IsOriginal)
	req.Equal("[es] Hello there my friend, how are you doing today", msg.Content)
	req.Equal("Hello there my friend, how are you doing today", msg.OriginalContent)

	// And the translator was called once, not once per recipient
	req.Equal(1, rig.translator.Calls())

	// And the sender got no echo
	req.Empty(aliceSink.Messages())
}

func TestController_SameLanguageRecipientGetsOriginal(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "en")

	post(ctrl, "r1", "alice", "Good morning everyone, the weather is lovely")

	req.Eventually(func() bool { return len(bobSink.Messages()) == 1 }, time.Second, 5*time.Millisecond)

	msg := bobSink.Messages()[0]
	req.True(msg.IsOriginal)
	req.Equal("Good morning everyone, the weather is lovely", msg.Content)
	req.Zero(rig.translator.Calls())
}

func TestController_SoloSenderTriggersNoTranslation(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	ctrl, aliceSink := rig.join(t, "r1", "alice", "en")
	post(ctrl, "r1", "alice", "Is anyone here")

	req.Eventually(func() bool {
		return rig.monitor.Snapshot().Messages == 1
	}, time.Second, 5*time.Millisecond)

	req.Zero(rig.translator.Calls())
	req.Empty(aliceSink.Messages())
}

func TestController_TranslationFailureIsIsolatedPerLanguage(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})
	rig.translator.failLang = "es"

	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "es")
	_, carolSink := rig.join(t, "r1", "carol", "fr")

	original := "The deployment finished without any problem at all"
	post(ctrl, "r1", "alice", original)

	req.Eventually(func() bool {
		return len(bobSink.Messages()) == 1 && len(carolSink.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	// Bob's group degraded to the original text with the failure flagged
	bobMsg := bobSink.Messages()[0]
	req.True(bobMsg.TranslationFailed)
	req.Equal(original, bobMsg.Content)

	// Carol's group is untouched by bob's failure
	carolMsg := carolSink.Messages()[0]
	req.False(carolMsg.TranslationFailed)
	req.Equal("[fr] "+original, carolMsg.Content)

	req.Equal(uint64(1), rig.monitor.Snapshot().TranslationFailures)
}

func TestController_SequencesAreNonDecreasingPerRecipient(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "es")

	for i := 0; i < 5; i++ {
		post(ctrl, "r1", "alice", fmt.Sprintf("message number %d for the room", i))
	}

	req.Eventually(func() bool { return len(bobSink.Messages()) == 5 }, 2*time.Second, 5*time.Millisecond)

	messages := bobSink.Messages()
	for i := 1; i < len(messages); i++ {
		req.Greater(messages[i].Sequence, messages[i-1].Sequence)
	}
}

func TestController_TextAlwaysSpeaksDeclaredLanguage(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	// alice declared english but types spanish; the declared language still
	// governs, so same-language bob gets the untouched original
	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "en")

	original := "El perro corre por el parque todas las mañanas con su dueño"
	post(ctrl, "r1", "alice", original)

	req.Eventually(func() bool { return len(bobSink.Messages()) == 1 }, time.Second, 5*time.Millisecond)

	msg := bobSink.Messages()[0]
	req.True(msg.IsOriginal)
	req.Equal(original, msg.Content)
	req.Equal("en", msg.Language)
	req.Zero(rig.translator.Calls())
}

func TestController_VoiceDetectedLanguageBecomesSource(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	// alice declared english but spoke spanish; the transcriber's detected
	// language rides in on the command and becomes the source
	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "es")
	_, carolSink := rig.join(t, "r1", "carol", "fr")

	ctrl.Submit(domain.PostMessageCommand{
		Room:     "r1",
		SenderID: "alice",
		Content:  "Hola amigo, nos vemos pronto",
		Language: "es",
	})

	req.Eventually(func() bool {
		return len(bobSink.Messages()) == 1 && len(carolSink.Messages()) == 1
	}, time.Second, 5*time.Millisecond)

	// Bob shares the spoken language, so no translation for him
	bobMsg := bobSink.Messages()[0]
	req.True(bobMsg.IsOriginal)
	req.Equal("es", bobMsg.Language)
	req.Equal("Hola amigo, nos vemos pronto", bobMsg.Content)

	// Carol's rendering is translated from spanish, not english
	carolMsg := carolSink.Messages()[0]
	req.False(carolMsg.IsOriginal)
	req.Equal("[fr] Hola amigo, nos vemos pronto", carolMsg.Content)

	req.Equal(1, rig.translator.Calls())
}

func TestController_JoinBroadcastsPresence(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	_, aliceSink := rig.join(t, "r1", "alice", "en")
	rig.join(t, "r1", "bob", "es")

	req.Eventually(func() bool { return len(aliceSink.Frames()) >= 2 }, time.Second, 5*time.Millisecond)

	frames := aliceSink.Frames()
	connected, ok := frames[0].(frame.Connected)
	req.True(ok)
	req.Equal("r1", connected.Room)
	req.Len(connected.Roster, 1)

	joined, ok := frames[1].(frame.Presence)
	req.True(ok)
	req.Equal(frame.TypeUserJoined, joined.Type)
	req.Equal("bob", joined.ParticipantID)
}

func TestController_DepartedRecipientIsSkippedSilently(t *testing.T) {
	req := require.New(t)
	rig := newRig(t, RegistryConfig{})

	ctrl, _ := rig.join(t, "r1", "alice", "en")
	_, bobSink := rig.join(t, "r1", "bob", "es")
	_, carolSink := rig.join(t, "r1", "carol", "es")

	// Let the pump flush bob's pending frames (his connected ack and carol's
	// arrival) so the only dropped delivery is the chat message
	req.Eventually(func() bool { return len(bobSink.Frames()) == 2 }, time.Second, 5*time.Millisecond)

	// Bob's connection dies without a leave yet
	bobSink.mu.Lock()
	bobSink.closed = true
	bobSink.mu.Unlock()

	post(ctrl, "r1", "alice", "still going strong over here")

	req.Eventually(func() bool { return len(carolSink.Messages()) == 1 }, time.Second, 5*time.Millisecond)
	req.Empty(bobSink.Messages())
	req.Equal(uint64(1), rig.monitor.Snapshot().DroppedDeliveries)
}
