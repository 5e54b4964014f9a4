package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"babel-relay/contract"
	"babel-relay/observability"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

// HeartbeatWorker periodically logs process health (CPU, RAM, status) together
// with the relay counters. The log stream doubles as a liveness signal.
type HeartbeatWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	registry contract.IRegistry
	interval time.Duration
}

func NewHeartbeatWorker(
	log *slog.Logger,
	monitor *observability.Monitor,
	registry contract.IRegistry,
	interval time.Duration,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:      log,
		monitor:  monitor,
		registry: registry,
		interval: interval,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting relay heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			stats := w.monitor.Snapshot()
			w.log.Info("Heartbeat",
				"pid", os.Getpid(),
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"rooms", len(w.registry.ListRooms()),
				"messages", stats.Messages,
				"translations", stats.Translations,
				"translation_failures", stats.TranslationFailures,
				"dropped_deliveries", stats.DroppedDeliveries,
				"goroutines", stats.GoRoutines,
				"alloc_mem_mb", stats.AllocMemMb,
			)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
