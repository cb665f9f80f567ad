// Package tasks wires the background services into the scheduler.
package tasks

import (
	"context"

	"github.com/gamearr/gamearr/internal/autosearch"
	"github.com/gamearr/gamearr/internal/scheduler"
)

// SearchTaskID identifies the wanted-games search task.
const SearchTaskID = "autosearch"

// RegisterSearchTask schedules the periodic wanted-games search. The
// interval comes from settings at boot; interval changes go through
// Scheduler.Reschedule.
func RegisterSearchTask(sched *scheduler.Scheduler, worker *autosearch.Service) error {
	interval := worker.Interval(context.Background())
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          SearchTaskID,
		Name:        "Wanted Games Search",
		Description: "Searches the indexer for monitored wanted games and grabs qualifying releases",
		Interval:    interval,
		Func: func(ctx context.Context) error {
			worker.RunOnce(ctx)
			return nil
		},
	})
}
