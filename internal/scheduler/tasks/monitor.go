package tasks

import (
	"context"

	"github.com/gamearr/gamearr/internal/monitor"
	"github.com/gamearr/gamearr/internal/scheduler"
)

// MonitorTaskID identifies the download reconciliation task.
const MonitorTaskID = "download-monitor"

// RegisterMonitorTask schedules the 30-second download reconciler.
func RegisterMonitorTask(sched *scheduler.Scheduler, m *monitor.Monitor) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          MonitorTaskID,
		Name:        "Download Monitor",
		Description: "Reconciles daemon torrent state into releases and games",
		Interval:    monitor.TickInterval,
		Func: func(ctx context.Context) error {
			m.Tick(ctx)
			return nil
		},
	})
}
