package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"support-chat/observability"
)

// DepthReporter exposes how many requests sit in the hub queue.
type DepthReporter interface {
	QueueDepth() int
}

// TelemetryWorker periodically samples process stats (CPU, RSS) and
// the hub queue depth, logging both and refreshing the queue gauge so
// a stalled hub is visible even with no traffic flowing.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	hub      DepthReporter
	metrics  *observability.Metrics
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration,
	hub DepthReporter, metrics *observability.Metrics) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, hub: hub, metrics: metrics}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
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
			depth := w.hub.QueueDepth()
			w.metrics.HubQueueDepth.Set(float64(depth))

			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
				continue
			}
			w.log.Debug("Telemetry sample",
				"queue_depth", depth,
				"rss_bytes", rss,
				"cpu_percent", cpu)
		}
	}
}

func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
