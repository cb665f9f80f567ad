package tasks

import (
	"context"

	"github.com/gamearr/gamearr/internal/rsssync"
	"github.com/gamearr/gamearr/internal/scheduler"
)

// RSSSyncTaskID identifies the RSS feed synchronization task.
const RSSSyncTaskID = "rss-sync"

// RegisterRSSSyncTask schedules the periodic RSS feed pull.
func RegisterRSSSyncTask(sched *scheduler.Scheduler, worker *rsssync.Service) error {
	interval := worker.Interval(context.Background())
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          RSSSyncTaskID,
		Name:        "RSS Sync",
		Description: "Pulls the indexer RSS feed and grabs releases matching wanted games",
		Interval:    interval,
		Func: func(ctx context.Context) error {
			worker.RunOnce(ctx)
			return nil
		},
	})
}
