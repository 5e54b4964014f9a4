// Package runtime hosts the per-room actors and the registry that owns them.
//
// Every room runs two supervised goroutines: the controller, which serializes
// joins, leaves and messages against the roster, and the delivery pump, which
// turns the controller's ordered plans into translated frames on the wire.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/domain/frame"
	"babel-relay/errors"
	"babel-relay/lang"
	"babel-relay/observability"
)

var (
	_ contract.IRoomController = (*RoomController)(nil)
	_ contract.Worker          = (*RoomController)(nil)
	_ contract.Worker          = (*deliveryPump)(nil)
)

// Deps bundles the collaborators shared by every room controller.
type Deps struct {
	Log        *slog.Logger
	Translator contract.ITranslator
	Emotions   contract.IEmotionDetector
	Moderator  contract.IModerator
	Recorder   contract.IHistoryRecorder
	Monitor    *observability.Monitor
	Languages  lang.Set
	OnEmpty    func(domain.RoomID)
}

type ControllerConfig struct {
	MaxParticipants  int
	CommandBuffer    int
	PlanBuffer       int
	TranslateTimeout time.Duration
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = 256
	}
	if c.PlanBuffer <= 0 {
		c.PlanBuffer = 256
	}
	if c.TranslateTimeout <= 0 {
		c.TranslateTimeout = 5 * time.Second
	}
	return c
}

type joinEnvelope struct {
	req   domain.JoinRequest
	sink  contract.FrameSink
	reply chan error
}

// RoomController is the actor owning one room. All state transitions happen
// on its Run goroutine; the exported methods only exchange messages with it.
type RoomController struct {
	room *domain.Room
	deps Deps
	cfg  ControllerConfig

	joins    chan joinEnvelope
	commands chan domain.Command
	plans    chan deliveryPlan

	done      chan struct{}
	closeOnce sync.Once

	seq   uint64
	sinks map[string]contract.FrameSink

	count       atomic.Int64
	rosterMu    sync.RWMutex
	rosterCache []domain.Participant
}

func NewRoomController(id domain.RoomID, deps Deps, cfg ControllerConfig) *RoomController {
	cfg = cfg.withDefaults()
	return &RoomController{
		room:     domain.NewRoom(id),
		deps:     deps,
		cfg:      cfg,
		joins:    make(chan joinEnvelope),
		commands: make(chan domain.Command, cfg.CommandBuffer),
		plans:    make(chan deliveryPlan, cfg.PlanBuffer),
		done:     make(chan struct{}),
		sinks:    make(map[string]contract.FrameSink),
	}
}

// Pump returns the delivery worker paired with this controller. Both must run
// under the same supervisor.
func (c *RoomController) Pump() contract.Worker {
	return &deliveryPump{c: c}
}

// Run is the room's single event loop.
func (c *RoomController) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case env := <-c.joins:
			env.reply <- c.handleJoin(env)
		case cmd := <-c.commands:
			c.handle(cmd)
		}
	}
}

// Join adds a participant synchronously so handshake rejections reach the
// transport before any frame is written. A closed room returns ErrRoomClosed;
// callers retry against the registry, which will mint a fresh room.
func (c *RoomController) Join(ctx context.Context, req domain.JoinRequest, sink contract.FrameSink) error {
	env := joinEnvelope{req: req, sink: sink, reply: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.ErrRoomClosed
	case c.joins <- env:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.ErrRoomClosed
	case err := <-env.reply:
		return err
	}
}

// Submit enqueues a command for the room loop. Fire-and-forget; commands for
// a closed room are discarded.
func (c *RoomController) Submit(cmd domain.Command) {
	select {
	case c.commands <- cmd:
	case <-c.done:
	}
}

func (c *RoomController) Roster() []domain.Participant {
	c.rosterMu.RLock()
	defer c.rosterMu.RUnlock()
	return c.rosterCache
}

func (c *RoomController) Len() int {
	return int(c.count.Load())
}

// Close wakes up the loop and the pump, and fails any in-flight Join.
// Idempotent.
func (c *RoomController) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *RoomController) handle(cmd domain.Command) {
	switch cmd := cmd.(type) {
	case domain.PostMessageCommand:
		c.handlePost(cmd)
	case domain.TypingCommand:
		c.handleTyping(cmd)
	case domain.LeaveCommand:
		c.handleLeave(cmd)
	default:
		c.deps.Log.Warn("Unknown command", "room", c.room.ID, "command", cmd)
	}
}

func (c *RoomController) handleJoin(env joinEnvelope) error {
	if c.cfg.MaxParticipants > 0 && c.room.Len() >= c.cfg.MaxParticipants {
		c.deps.Monitor.IncrRejectedHandshakes()
		return errors.NewHandshakeError(errors.CodeRoomFull,
			"room %s is full (%d participants)", c.room.ID, c.room.Len())
	}

	p := &domain.Participant{
		ID:       env.req.ParticipantID,
		Name:     env.req.Name,
		Language: lang.Normalize(env.req.Language),
		State:    domain.StateActive,
		JoinedAt: time.Now().UTC(),
	}
	if !c.room.Add(p) {
		c.deps.Monitor.IncrRejectedHandshakes()
		return errors.NewHandshakeError(errors.CodeDuplicateID,
			"participant id %q already connected", p.ID)
	}

	c.sinks[p.ID] = env.sink
	c.refreshRoster()
	c.deps.Monitor.IncrJoins()
	c.deps.Log.Info("Participant joined", "room", c.room.ID, "participant", p.ID, "language", p.Language)

	// The connected ack rides the plan queue so it always precedes any
	// message frame for this recipient.
	c.enqueue(deliveryPlan{
		frame:   frame.NewConnected(c.room.ID, c.room.Roster()),
		targets: []recipient{{id: p.ID, sink: env.sink}},
	})
	c.enqueue(deliveryPlan{
		frame:   frame.NewUserJoined(*p),
		targets: c.everyoneBut(p.ID),
	})
	return nil
}

func (c *RoomController) handlePost(cmd domain.PostMessageCommand) {
	sender, ok := c.room.Get(cmd.SenderID)
	if !ok || sender.State != domain.StateActive {
		c.deps.Log.Debug("Message from absent participant dropped", "room", c.room.ID, "sender", cmd.SenderID)
		return
	}

	content := cmd.Content
	if c.deps.Moderator != nil {
		censored, found := c.deps.Moderator.Censor(content)
		if len(found) > 0 {
			c.deps.Log.Info("Censored message", "room", c.room.ID, "sender", cmd.SenderID, "matches", len(found))
			content = censored
		}
	}

	// Text always speaks the declared language; only the voice path carries
	// a transcriber-detected language, and it wins when supported.
	language := sender.Language
	if detected := lang.Normalize(cmd.Language); detected != "" && c.deps.Languages.Contains(detected) {
		language = detected
	}

	reading := c.deps.Emotions.Analyze(content)

	c.seq++
	evt := domain.ChatEvent{
		ID:         uuid.New(),
		Room:       c.room.ID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Content:    content,
		Language:   language,
		Emotion:    reading.Primary,
		Sequence:   c.seq,
		At:         cmd.CreatedAt,
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	var groups []languageGroup
	for _, target := range c.room.DistinctLanguages(sender.ID) {
		ids := c.room.ActiveByLanguage(target, sender.ID)
		g := languageGroup{
			language:   target,
			translate:  target != evt.Language,
			recipients: make([]recipient, 0, len(ids)),
		}
		for _, id := range ids {
			if sink, ok := c.sinks[id]; ok {
				g.recipients = append(g.recipients, recipient{id: id, sink: sink})
			}
		}
		groups = append(groups, g)
	}

	c.deps.Monitor.IncrMessages()
	if len(groups) == 0 {
		// Solo sender: nothing to deliver, nothing to translate, but the
		// message still reaches history.
		if c.deps.Recorder != nil {
			c.deps.Recorder.Record(c.room.ID, []domain.DerivedMessage{domain.Original(evt)})
		}
		return
	}

	c.enqueue(deliveryPlan{event: evt, groups: groups})
}

func (c *RoomController) handleTyping(cmd domain.TypingCommand) {
	if _, ok := c.room.Get(cmd.ParticipantID); !ok {
		return
	}
	c.enqueue(deliveryPlan{
		frame:   frame.NewTyping(cmd.ParticipantID, cmd.IsTyping),
		targets: c.everyoneBut(cmd.ParticipantID),
	})
}

func (c *RoomController) handleLeave(cmd domain.LeaveCommand) {
	p, ok := c.room.Get(cmd.ParticipantID)
	if !ok {
		return
	}
	p.State = domain.StateLeaving
	c.room.Remove(p.ID)
	delete(c.sinks, p.ID)
	c.refreshRoster()
	c.deps.Monitor.IncrLeaves()
	c.deps.Log.Info("Participant left", "room", c.room.ID, "participant", p.ID, "reason", cmd.Reason)

	c.enqueue(deliveryPlan{
		frame:   frame.NewUserLeft(*p),
		targets: c.everyoneBut(p.ID),
	})

	if c.room.Len() == 0 && c.deps.OnEmpty != nil {
		c.deps.OnEmpty(c.room.ID)
	}
}

// enqueue pushes a plan, blocking the loop if the pump lags. Backpressure on
// the room beats unbounded memory growth.
func (c *RoomController) enqueue(plan deliveryPlan) {
	select {
	case c.plans <- plan:
	case <-c.done:
	}
}

func (c *RoomController) everyoneBut(excludeID string) []recipient {
	roster := c.room.Roster()
	out := make([]recipient, 0, len(roster))
	for _, p := range roster {
		if p.ID == excludeID || p.State != domain.StateActive {
			continue
		}
		if sink, ok := c.sinks[p.ID]; ok {
			out = append(out, recipient{id: p.ID, sink: sink})
		}
	}
	return out
}

func (c *RoomController) refreshRoster() {
	snapshot := c.room.Roster()
	c.rosterMu.Lock()
	c.rosterCache = snapshot
	c.rosterMu.Unlock()
	c.count.Store(int64(c.room.Len()))
}
