package updates

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gamearr/gamearr/internal/database"
)

// SweepResult aggregates one whole-catalogue update check.
type SweepResult struct {
	Checked      int `json:"checked"`
	UpdatesFound int `json:"updatesFound"`
}

// interGameDelay paces indexer searches within a sweep.
const interGameDelay = time.Second

// Job drives whole-catalogue update sweeps. Scheduled ticks and manual
// triggers share a single in-flight sweep; nobody ever starts a
// duplicate.
type Job struct {
	games    *database.GameRepo
	detector *Detector
	logger   zerolog.Logger

	flight singleflight.Group

	// sleep is replaceable in tests so sweeps don't take real seconds.
	sleep func(ctx context.Context, d time.Duration)
}

// NewJob creates the update-check sweep job.
func NewJob(games *database.GameRepo, detector *Detector, logger zerolog.Logger) *Job {
	return &Job{
		games:    games,
		detector: detector,
		logger:   logger.With().Str("component", "update-check").Logger(),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Run executes a sweep, or joins the one already in flight.
func (j *Job) Run(ctx context.Context) (*SweepResult, error) {
	result, err, shared := j.flight.Do("sweep", func() (any, error) {
		return j.sweep(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		j.logger.Debug().Msg("Joined in-flight update sweep")
	}
	return result.(*SweepResult), nil
}

func (j *Job) sweep(ctx context.Context) (*SweepResult, error) {
	games, err := j.games.ListForUpdateCheck(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for i, game := range games {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			j.sleep(ctx, interGameDelay)
		}

		found, err := j.detector.CheckGameForUpdates(ctx, game.ID)
		if err != nil {
			j.logger.Error().Err(err).Str("game", game.Title).Msg("Update check failed")
			continue
		}
		result.Checked++
		result.UpdatesFound += len(found)
	}

	j.logger.Info().
		Int("checked", result.Checked).
		Int("updatesFound", result.UpdatesFound).
		Msg("Update sweep finished")

	return result, nil
}
