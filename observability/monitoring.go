// Package observability aggregates relay counters for heartbeat logs and the
// diagnostics endpoint.
package observability

import (
	"runtime"
	"sync/atomic"
)

// Stats is a point-in-time snapshot of the relay counters plus Go runtime
// metrics.
type Stats struct {
	RoomsCreated        uint64 `json:"rooms_created"`
	RoomsDestroyed      uint64 `json:"rooms_destroyed"`
	Joins               uint64 `json:"joins"`
	Leaves              uint64 `json:"leaves"`
	Messages            uint64 `json:"messages"`
	VoiceMessages       uint64 `json:"voice_messages"`
	Translations        uint64 `json:"translations"`
	TranslationFailures uint64 `json:"translation_failures"`
	DroppedDeliveries   uint64 `json:"dropped_deliveries"`
	RejectedHandshakes  uint64 `json:"rejected_handshakes"`
	GoRoutines          int    `json:"goroutines"`
	AllocMemMb          uint64 `json:"alloc_mem_mb"`
	NumGC               uint32 `json:"num_gc"`
}

// Monitor is safe for concurrent use; every counter is atomic.
type Monitor struct {
	roomsCreated        atomic.Uint64
	roomsDestroyed      atomic.Uint64
	joins               atomic.Uint64
	leaves              atomic.Uint64
	messages            atomic.Uint64
	voiceMessages       atomic.Uint64
	translations        atomic.Uint64
	translationFailures atomic.Uint64
	droppedDeliveries   atomic.Uint64
	rejectedHandshakes  atomic.Uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) IncrRoomsCreated()        { m.roomsCreated.Add(1) }
func (m *Monitor) IncrRoomsDestroyed()      { m.roomsDestroyed.Add(1) }
func (m *Monitor) IncrJoins()               { m.joins.Add(1) }
func (m *Monitor) IncrLeaves()              { m.leaves.Add(1) }
func (m *Monitor) IncrMessages()            { m.messages.Add(1) }
func (m *Monitor) IncrVoiceMessages()       { m.voiceMessages.Add(1) }
func (m *Monitor) IncrTranslations()        { m.translations.Add(1) }
func (m *Monitor) IncrTranslationFailures() { m.translationFailures.Add(1) }
func (m *Monitor) IncrDroppedDeliveries()   { m.droppedDeliveries.Add(1) }
func (m *Monitor) IncrRejectedHandshakes()  { m.rejectedHandshakes.Add(1) }

func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Stats{
		RoomsCreated:        m.roomsCreated.Load(),
		RoomsDestroyed:      m.roomsDestroyed.Load(),
		Joins:               m.joins.Load(),
		Leaves:              m.leaves.Load(),
		Messages:            m.messages.Load(),
		VoiceMessages:       m.voiceMessages.Load(),
		Translations:        m.translations.Load(),
		TranslationFailures: m.translationFailures.Load(),
		DroppedDeliveries:   m.droppedDeliveries.Load(),
		RejectedHandshakes:  m.rejectedHandshakes.Load(),
		GoRoutines:          runtime.NumGoroutine(),
		AllocMemMb:          mem.Alloc / 1024 / 1024,
		NumGC:               mem.NumGC,
	}
}
