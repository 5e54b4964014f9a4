package runtime

import (
	"context"
	"sync"

	"babel-relay/contract"
	"babel-relay/domain"
	"babel-relay/domain/frame"
)

// recipient pairs a participant id with its connection sink, snapshotted at
// plan-build time so the pump never touches the live roster.
type recipient struct {
	id   string
	sink contract.FrameSink
}

// languageGroup is one translation unit of a fan-out: every recipient in the
// group declared the same language, so one translator call serves them all.
type languageGroup struct {
	language   string
	translate  bool
	recipients []recipient
}

// deliveryPlan is one unit of outbound work. Either a chat event with its
// per-language groups, or a plain frame broadcast (presence, typing,
// connected acks). Plans are executed strictly in the order the room actor
// emitted them, which is what keeps per-recipient sequences non-decreasing.
type deliveryPlan struct {
	event   domain.ChatEvent
	groups  []languageGroup
	frame   frame.Frame
	targets []recipient
}

// deliveryPump drains a room's plan queue. Translation calls inside one plan
// run concurrently, one per distinct language; the pump joins them all before
// delivering, then moves to the next plan.
type deliveryPump struct {
	c *RoomController
}

func (p *deliveryPump) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.c.done:
			return nil
		case plan := <-p.c.plans:
			if len(plan.groups) > 0 {
				p.fanOut(ctx, plan)
			} else {
				p.broadcast(ctx, plan.frame, plan.targets)
			}
		}
	}
}

func (p *deliveryPump) broadcast(ctx context.Context, f frame.Frame, targets []recipient) {
	for _, t := range targets {
		if err := t.sink.Deliver(ctx, f); err != nil {
			p.c.deps.Monitor.IncrDroppedDeliveries()
			p.c.deps.Log.Debug("Dropped frame", "room", p.c.room.ID, "participant", t.id, "err", err)
		}
	}
}

// fanOut renders one chat event for every language group and delivers the
// result. A failed or timed-out translation degrades that group to the
// original text with the failure flagged; other groups are unaffected.
func (p *deliveryPump) fanOut(ctx context.Context, plan deliveryPlan) {
	deps := p.c.deps
	derived := make([]domain.DerivedMessage, len(plan.groups))

	var wg sync.WaitGroup
	for i, g := range plan.groups {
		if !g.translate {
			derived[i] = domain.Original(plan.event)
			continue
		}

		wg.Add(1)
		go func(i int, g languageGroup) {
			defer wg.Done()
			tctx, cancel := context.WithTimeout(ctx, p.c.cfg.TranslateTimeout)
			defer cancel()

			deps.Monitor.IncrTranslations()
			text, err := deps.Translator.Translate(tctx, plan.event.Content, plan.event.Language, g.language)
			if err != nil {
				deps.Monitor.IncrTranslationFailures()
				deps.Log.Warn("Translation failed, delivering original",
					"room", p.c.room.ID, "target_lang", g.language, "err", err)
				derived[i] = domain.Translated(plan.event, g.language, "", true)
				return
			}
			derived[i] = domain.Translated(plan.event, g.language, text, false)
		}(i, g)
	}
	wg.Wait()

	for i, g := range plan.groups {
		p.broadcast(ctx, frame.NewMessage(derived[i]), g.recipients)
	}

	p.record(plan.event, derived)
}

// record hands every rendering to the history collaborator, making sure the
// original text is persisted even when no recipient shares the sender's
// language.
func (p *deliveryPump) record(evt domain.ChatEvent, derived []domain.DerivedMessage) {
	if p.c.deps.Recorder == nil {
		return
	}
	hasOriginal := false
	for _, d := range derived {
		if d.IsOriginal {
			hasOriginal = true
			break
		}
	}
	if !hasOriginal {
		derived = append([]domain.DerivedMessage{domain.Original(evt)}, derived...)
	}
	p.c.deps.Recorder.Record(evt.Room, derived)
}
