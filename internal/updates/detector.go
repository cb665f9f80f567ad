// Package updates detects successor releases (new versions, DLC,
// better-quality rips) for downloaded games.
package updates

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/scoring"
)

// Indexer is the slice of the aggregator the detector needs.
type Indexer interface {
	IsConfigured(ctx context.Context) bool
	Search(ctx context.Context, query string, categories []int, limit int) ([]prowlarr.Release, error)
}

// Detector finds and records update candidates for downloaded games.
type Detector struct {
	games   *database.GameRepo
	updates *database.UpdateRepo
	indexer Indexer
	logger  zerolog.Logger

	// flight coalesces concurrent checks per game: overlapping callers
	// share one indexer search.
	flight singleflight.Group

	now func() time.Time
}

// NewDetector creates an update detector.
func NewDetector(games *database.GameRepo, updates *database.UpdateRepo, indexer Indexer, logger zerolog.Logger) *Detector {
	return &Detector{
		games:   games,
		updates: updates,
		indexer: indexer,
		logger:  logger.With().Str("component", "updates").Logger(),
		now:     time.Now,
	}
}

// CheckGameForUpdates searches the indexer for successor releases of a
// downloaded game and records new candidates. Concurrent calls for the
// same game share a single in-flight check.
func (d *Detector) CheckGameForUpdates(ctx context.Context, gameID int64) ([]*models.GameUpdate, error) {
	key := strconv.FormatInt(gameID, 10)
	result, err, _ := d.flight.Do(key, func() (any, error) {
		return d.checkGame(ctx, gameID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.GameUpdate), nil
}

func (d *Detector) checkGame(ctx context.Context, gameID int64) ([]*models.GameUpdate, error) {
	game, err := d.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, apperr.Database("failed to load game", err)
	}
	if game == nil || game.Status != models.GameStatusDownloaded {
		return nil, nil
	}

	candidates, err := d.indexer.Search(ctx, game.Title, nil, 50)
	if err != nil {
		return nil, err
	}

	existing, err := d.updates.ListByGame(ctx, gameID)
	if err != nil {
		return nil, apperr.Database("failed to load existing updates", err)
	}
	seenURL := make(map[string]struct{}, len(existing))
	seenTitle := make(map[string]struct{}, len(existing))
	for _, u := range existing {
		seenURL[u.DownloadURL] = struct{}{}
		seenTitle[u.Title] = struct{}{}
	}

	var created []*models.GameUpdate
	for _, candidate := range candidates {
		if _, ok := seenURL[candidate.DownloadURL]; ok {
			continue
		}
		if _, ok := seenTitle[candidate.Title]; ok {
			continue
		}

		update := Classify(candidate, game)
		if update == nil {
			continue
		}

		created = append(created, update)
		seenURL[candidate.DownloadURL] = struct{}{}
		seenTitle[candidate.Title] = struct{}{}
	}

	if len(created) > 0 {
		if _, err := d.updates.BatchCreate(ctx, created); err != nil {
			return nil, apperr.Database("failed to record updates", err)
		}
		if err := d.games.SetUpdateAvailable(ctx, gameID, latestVersion(created)); err != nil {
			d.logger.Warn().Err(err).Int64("gameId", gameID).Msg("Failed to flag update availability")
		}
		d.logger.Info().
			Str("game", game.Title).
			Int("updates", len(created)).
			Msg("Found update candidates")
	}

	if err := d.games.TouchUpdateCheck(ctx, gameID, d.now()); err != nil {
		d.logger.Warn().Err(err).Int64("gameId", gameID).Msg("Failed to record update check time")
	}

	return created, nil
}

func latestVersion(updates []*models.GameUpdate) string {
	best := ""
	for _, u := range updates {
		if u.UpdateType != models.UpdateTypeVersion || u.Version == "" {
			continue
		}
		if best == "" || scoring.CompareVersions(u.Version, best) > 0 {
			best = u.Version
		}
	}
	return best
}

var (
	dlcKeywordRe = regexp.MustCompile(`(?i)\b(dlc|expansion|season pass|goty)\b`)
	editionRe    = regexp.MustCompile(`(?i)\b(ultimate|complete|deluxe|gold|premium|collector'?s|definitive|legendary)\s+edition\b`)
)

var dlcConnectors = []string{" - ", " + ", " and ", " with "}

// Classify decides whether a candidate is an update for the game, and
// of what type. Nil means not an update.
func Classify(candidate prowlarr.Release, game *models.Game) *models.GameUpdate {
	update := &models.GameUpdate{
		GameID:      game.ID,
		Title:       candidate.Title,
		Size:        candidate.Size,
		Seeders:     candidate.Seeders,
		DownloadURL: candidate.DownloadURL,
		Indexer:     candidate.Indexer,
		Status:      models.UpdateStatusPending,
	}
	if quality, _ := scoring.ExtractQuality(candidate.Title); quality != "" {
		update.Quality = quality
	}

	if isDLC(candidate.Title, game.Title) {
		update.UpdateType = models.UpdateTypeDLC
		return update
	}

	if version := scoring.ParseVersion(candidate.Title); version != "" {
		if game.InstalledVersion == "" || scoring.CompareVersions(version, game.InstalledVersion) > 0 {
			update.UpdateType = models.UpdateTypeVersion
			update.Version = version
			return update
		}
	}

	if scoring.QualityRank(update.Quality) > scoring.QualityRank(game.InstalledQuality) {
		update.UpdateType = models.UpdateTypeBetterRelease
		return update
	}

	return nil
}

func isDLC(candidateTitle, gameTitle string) bool {
	if dlcKeywordRe.MatchString(candidateTitle) || editionRe.MatchString(candidateTitle) {
		return true
	}
	lower := strings.ToLower(candidateTitle)
	game := strings.ToLower(gameTitle)
	idx := strings.Index(lower, game)
	if idx < 0 {
		return false
	}
	rest := candidateTitle[idx+len(game):]
	for _, connector := range dlcConnectors {
		if strings.HasPrefix(strings.ToLower(rest), connector) {
			if len(strings.TrimSpace(rest[len(connector):])) > 5 {
				return true
			}
		}
	}
	return false
}

// Dismiss marks an update candidate as dismissed. Dismissing twice is
// a no-op after the first.
func (d *Detector) Dismiss(ctx context.Context, updateID int64) error {
	update, err := d.updates.GetByID(ctx, updateID)
	if err != nil {
		return apperr.Database("failed to load update", err)
	}
	if update == nil {
		return apperr.NotFound("update not found")
	}
	return d.updates.UpdateStatus(ctx, updateID, models.UpdateStatusDismissed)
}

// MarkGrabbed records that an update candidate was grabbed.
func (d *Detector) MarkGrabbed(ctx context.Context, updateID int64) error {
	return d.updates.UpdateStatus(ctx, updateID, models.UpdateStatusGrabbed)
}

// ListByGame returns the update candidates recorded for a game.
func (d *Detector) ListByGame(ctx context.Context, gameID int64) ([]*models.GameUpdate, error) {
	return d.updates.ListByGame(ctx, gameID)
}

// ListPending returns all pending update candidates.
func (d *Detector) ListPending(ctx context.Context) ([]*models.GameUpdate, error) {
	return d.updates.ListPending(ctx)
}
