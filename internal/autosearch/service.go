// Package autosearch periodically searches the indexer for wanted
// games and auto-grabs qualifying releases.
package autosearch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/download"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/scoring"
	"github.com/gamearr/gamearr/internal/settings"
)

// interGameDelay paces indexer searches within a tick.
const interGameDelay = 2 * time.Second

// Indexer is the slice of the aggregator the worker needs.
type Indexer interface {
	IsConfigured(ctx context.Context) bool
	Search(ctx context.Context, query string, categories []int, limit int) ([]prowlarr.Release, error)
}

// Downloader handles grabs and failed-release cleanup.
type Downloader interface {
	GrabRelease(ctx context.Context, gameID int64, scored scoring.ScoredRelease) (*download.GrabResult, error)
	ResetFailedDownloads(ctx context.Context) (*download.FailedResetResult, error)
}

// TickResult summarizes one search pass.
type TickResult struct {
	Searched int
	Grabbed  int
	Failed   int
}

// Service is the wanted-games search worker.
type Service struct {
	games      *database.GameRepo
	indexer    Indexer
	downloader Downloader
	settings   *settings.Service
	logger     zerolog.Logger

	// running collapses concurrent ticks: a tick that finds the flag
	// set skips instead of queueing.
	running atomic.Bool

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// NewService creates the search worker.
func NewService(games *database.GameRepo, indexer Indexer, downloader Downloader, settingsSvc *settings.Service, logger zerolog.Logger) *Service {
	return &Service{
		games:      games,
		indexer:    indexer,
		downloader: downloader,
		settings:   settingsSvc,
		logger:     logger.With().Str("component", "autosearch").Logger(),
		sleep:      sleepCtx,
		now:        time.Now,
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

// Interval returns the configured tick interval.
func (s *Service) Interval(ctx context.Context) time.Duration {
	return s.settings.SearchInterval(ctx)
}

// RunOnce executes one tick: reset failed downloads, then search for
// every monitored wanted game. Returns nil when a tick is already
// running.
func (s *Service) RunOnce(ctx context.Context) *TickResult {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Search tick already running, skipping")
		return nil
	}
	defer s.running.Store(false)

	if _, err := s.downloader.ResetFailedDownloads(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed-download reset failed")
	}

	if !s.indexer.IsConfigured(ctx) {
		s.logger.Debug().Msg("Indexer not configured, skipping search tick")
		return &TickResult{}
	}

	wanted, err := s.games.ListMonitoredByStatus(ctx, models.GameStatusWanted)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load wanted games")
		return &TickResult{}
	}
	if len(wanted) == 0 {
		return &TickResult{}
	}

	minScore := s.settings.MinScore(ctx)
	minSeeders := s.settings.MinSeeders(ctx)

	result := &TickResult{}
	for i, game := range wanted {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			s.sleep(ctx, interGameDelay)
		}

		result.Searched++
		scored, err := s.SearchForGame(ctx, game)
		if err != nil {
			result.Failed++
			s.logger.Error().Err(err).Str("game", game.Title).Msg("Search failed")
			continue
		}

		grabbed := false
		for _, candidate := range scored {
			if !scoring.ShouldAutoGrab(candidate, minScore, minSeeders) {
				continue
			}
			if _, err := s.downloader.GrabRelease(ctx, game.ID, candidate); err != nil {
				result.Failed++
				s.logger.Error().Err(err).
					Str("game", game.Title).
					Str("release", candidate.Title).
					Msg("Auto-grab failed")
			} else {
				result.Grabbed++
				grabbed = true
			}
			break
		}
		if !grabbed {
			s.logger.Debug().Str("game", game.Title).Int("candidates", len(scored)).Msg("No qualifying release")
		}
	}

	s.logger.Info().
		Int("searched", result.Searched).
		Int("grabbed", result.Grabbed).
		Int("failed", result.Failed).
		Msg("Search tick finished")

	return result
}

// SearchForGame runs an indexer search for one game and returns the
// candidates scored and ranked best-first.
func (s *Service) SearchForGame(ctx context.Context, game *models.Game) ([]scoring.ScoredRelease, error) {
	releases, err := s.indexer.Search(ctx, game.Title, nil, 50)
	if err != nil {
		return nil, err
	}
	now := s.now()
	scored := make([]scoring.ScoredRelease, 0, len(releases))
	for _, release := range releases {
		scored = append(scored, scoring.ScoreRelease(release, game, now))
	}
	scoring.Rank(scored)
	return scored, nil
}
