package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/scheduler"
	"github.com/gamearr/gamearr/internal/settings"
	"github.com/gamearr/gamearr/internal/testutil"
	"github.com/gamearr/gamearr/internal/updates"
)

type countingIndexer struct {
	calls atomic.Int32
}

func (c *countingIndexer) IsConfigured(context.Context) bool { return true }

func (c *countingIndexer) Search(context.Context, string, []int, int) ([]prowlarr.Release, error) {
	c.calls.Add(1)
	return nil, nil
}

func TestCronForSchedule(t *testing.T) {
	cases := map[string]string{
		"hourly": "0 * * * *",
		"daily":  "0 3 * * *",
		"weekly": "0 3 * * 1",
		"bogus":  "0 3 * * *",
		"":       "0 3 * * *",
	}
	for schedule, want := range cases {
		if got := CronForSchedule(schedule); got != want {
			t.Errorf("CronForSchedule(%q) = %q, want %q", schedule, got, want)
		}
	}
}

// The sweep task is always registered; the enabled flag gates each run,
// so toggling it at runtime takes effect without a restart.
func TestUpdateCheckTaskGatesOnSetting(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	ctx := context.Background()

	settingsSvc := settings.NewService(tdb.Repos.Settings, testutil.NopLogger())
	if err := settingsSvc.Set(ctx, settings.KeyUpdateCheckEnabled, "false"); err != nil {
		t.Fatal(err)
	}

	created, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 1, Title: "Hades"})
	if err != nil {
		t.Fatal(err)
	}
	if err := tdb.Repos.Games.UpdateStatus(ctx, created.ID, models.GameStatusDownloaded); err != nil {
		t.Fatal(err)
	}

	indexer := &countingIndexer{}
	detector := updates.NewDetector(tdb.Repos.Games, tdb.Repos.Updates, indexer, testutil.NopLogger())
	job := updates.NewJob(tdb.Repos.Games, detector, testutil.NopLogger())

	sched, err := scheduler.New(testutil.NopLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sched.Stop() })

	if err := RegisterUpdateCheckTask(sched, job, settingsSvc); err != nil {
		t.Fatalf("RegisterUpdateCheckTask failed: %v", err)
	}
	if _, err := sched.GetTask(UpdateCheckTaskID); err != nil {
		t.Fatalf("task must be registered while disabled: %v", err)
	}

	last := runUpdateCheck(t, sched, nil)
	if got := indexer.calls.Load(); got != 0 {
		t.Errorf("disabled run searched the indexer %d times", got)
	}

	if err := settingsSvc.Set(ctx, settings.KeyUpdateCheckEnabled, "true"); err != nil {
		t.Fatal(err)
	}
	runUpdateCheck(t, sched, last)
	if got := indexer.calls.Load(); got != 1 {
		t.Errorf("enabled run searched the indexer %d times, want 1", got)
	}
}

// runUpdateCheck triggers the sweep task and waits for the run started
// after prev to complete, returning its timestamp.
func runUpdateCheck(t *testing.T, sched *scheduler.Scheduler, prev *time.Time) *time.Time {
	t.Helper()
	if err := sched.RunNow(UpdateCheckTaskID); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info, err := sched.GetTask(UpdateCheckTaskID)
		if err != nil {
			t.Fatal(err)
		}
		if !info.Running && info.LastRun != nil && (prev == nil || info.LastRun.After(*prev)) {
			return info.LastRun
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("update check run never completed")
	return nil
}
