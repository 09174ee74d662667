package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"wander-core/contract"
	"wander-core/observability"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs delivery counters together with the
// process self-stats (CPU, RSS). It is the only place reading the
// monitor, so a lost tick costs nothing.
type HeartbeatWorker struct {
	log      *slog.Logger
	monitor  *observability.Monitor
	table    contract.IPresenceTable
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, monitor *observability.Monitor,
	table contract.IPresenceTable, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, monitor: monitor, table: table, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			stats := w.monitor.Snapshot(len(w.table.OnlineUserIDs()))
			w.log.Info("Heartbeat",
				"online_users", stats.OnlineUsers,
				"messages_routed", stats.MessagesRouted,
				"status_updates", stats.StatusUpdates,
				"notifications_sent", stats.NotificationsSent,
				"events_delivered", stats.EventsDelivered,
				"events_dropped", stats.EventsDropped,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"pid_status", status)
		}
	}
}

// selfStats retrieves technical metrics (Memory, CPU, OS status) for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
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
