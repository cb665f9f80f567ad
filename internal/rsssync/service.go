// Package rsssync pulls the aggregator's recent-releases feed and
// auto-grabs matches against the wanted catalog.
package rsssync

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

const (
	// maxProcessedGuids bounds the dedup set across ticks.
	maxProcessedGuids = 1000
	// rssFetchLimit caps items pulled per tick.
	rssFetchLimit = 100
)

// Indexer is the slice of the aggregator the synchronizer needs.
type Indexer interface {
	IsConfigured(ctx context.Context) bool
	RSS(ctx context.Context, categories []int, limit int) ([]prowlarr.Release, error)
}

// Downloader delegates grabs.
type Downloader interface {
	GrabRelease(ctx context.Context, gameID int64, scored scoring.ScoredRelease) (*download.GrabResult, error)
}

// TickResult summarizes one feed pass.
type TickResult struct {
	Items   int
	New     int
	Grabbed int
}

// Service is the RSS synchronization worker. The processed-GUID set is
// only touched inside a tick; the running flag serializes ticks.
type Service struct {
	games      *database.GameRepo
	indexer    Indexer
	downloader Downloader
	settings   *settings.Service
	logger     zerolog.Logger

	running   atomic.Bool
	processed *guidSet

	now func() time.Time
}

// NewService creates the RSS synchronizer.
func NewService(games *database.GameRepo, indexer Indexer, downloader Downloader, settingsSvc *settings.Service, logger zerolog.Logger) *Service {
	return &Service{
		games:      games,
		indexer:    indexer,
		downloader: downloader,
		settings:   settingsSvc,
		logger:     logger.With().Str("component", "rsssync").Logger(),
		processed:  newGuidSet(maxProcessedGuids),
		now:        time.Now,
	}
}

// Interval returns the configured tick interval.
func (s *Service) Interval(ctx context.Context) time.Duration {
	return s.settings.RSSSyncInterval(ctx)
}

// RunOnce executes one feed pass. Returns nil when a tick is already
// running.
func (s *Service) RunOnce(ctx context.Context) *TickResult {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("RSS tick already running, skipping")
		return nil
	}
	defer s.running.Store(false)

	if !s.indexer.IsConfigured(ctx) {
		s.logger.Debug().Msg("Indexer not configured, skipping RSS tick")
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

	items, err := s.indexer.RSS(ctx, nil, rssFetchLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("RSS fetch failed")
		return &TickResult{}
	}

	minScore := s.settings.MinScore(ctx)
	minSeeders := s.settings.MinSeeders(ctx)
	now := s.now()

	// working is the per-tick wanted set; a grabbed game is removed so
	// later items in the same tick cannot match it again.
	working := make([]*models.Game, len(wanted))
	copy(working, wanted)

	result := &TickResult{Items: len(items)}
	for _, item := range items {
		if s.processed.Contains(item.GUID) {
			continue
		}
		s.processed.Add(item.GUID)
		result.New++

		if len(working) == 0 {
			continue
		}

		game, scored := scoring.FindBestMatch(item, working, now)
		if game == nil || !scoring.ShouldAutoGrab(scored, minScore, minSeeders) {
			continue
		}

		if _, err := s.downloader.GrabRelease(ctx, game.ID, scored); err != nil {
			s.logger.Error().Err(err).
				Str("game", game.Title).
				Str("release", item.Title).
				Msg("RSS auto-grab failed")
			continue
		}

		result.Grabbed++
		working = removeGame(working, game.ID)
		s.logger.Info().
			Str("game", game.Title).
			Str("release", item.Title).
			Int("score", scored.Score).
			Msg("Grabbed release from RSS feed")
	}

	s.logger.Debug().
		Int("items", result.Items).
		Int("new", result.New).
		Int("grabbed", result.Grabbed).
		Msg("RSS tick finished")

	return result
}

func removeGame(games []*models.Game, id int64) []*models.Game {
	out := games[:0]
	for _, g := range games {
		if g.ID != id {
			out = append(out, g)
		}
	}
	return out
}
