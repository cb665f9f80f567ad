package tasks

import (
	"context"
	"time"

	"github.com/gamearr/gamearr/internal/scheduler"
	"github.com/gamearr/gamearr/internal/settings"
	"github.com/gamearr/gamearr/internal/updates"
)

// UpdateCheckTaskID identifies the catalog update sweep task.
const UpdateCheckTaskID = "update-check"

// bootCheckDelay keeps the first sweep off the boot path.
const bootCheckDelay = 60 * time.Second

// CronForSchedule maps the update-check schedule setting to a cron
// expression. The sweep runs off-peak at 03:00 for the longer cadences.
func CronForSchedule(schedule string) string {
	switch schedule {
	case "hourly":
		return "0 * * * *"
	case "weekly":
		return "0 3 * * 1"
	default:
		return "0 3 * * *"
	}
}

// RegisterUpdateCheckTask schedules the update sweep per the configured
// cadence and fires a first check shortly after boot. The task is
// always registered; each run re-reads the enabled flag, so toggling
// update_check_enabled takes effect without a restart.
func RegisterUpdateCheckTask(sched *scheduler.Scheduler, job *updates.Job, settingsSvc *settings.Service) error {
	err := sched.RegisterTask(scheduler.TaskConfig{
		ID:          UpdateCheckTaskID,
		Name:        "Update Check",
		Description: "Sweeps downloaded games for available updates, DLC and better releases",
		Cron:        CronForSchedule(settingsSvc.UpdateCheckSchedule(context.Background())),
		Func: func(ctx context.Context) error {
			if !settingsSvc.UpdateCheckEnabled(ctx) {
				return nil
			}
			_, err := job.Run(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}

	time.AfterFunc(bootCheckDelay, func() {
		// Best effort; the task may legitimately already be running.
		_ = sched.RunNow(UpdateCheckTaskID)
	})

	return nil
}
