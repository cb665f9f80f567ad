// Package download bridges scored releases to the torrent daemon and
// reconciles daemon state back into release and game status.
package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/qbittorrent"
	"github.com/gamearr/gamearr/internal/scoring"
	"github.com/gamearr/gamearr/internal/settings"
)

// Daemon is the slice of the torrent client the download service needs.
type Daemon interface {
	IsConfigured(ctx context.Context) bool
	AddTorrent(ctx context.Context, downloadURL string, opts qbittorrent.AddOptions) error
	Torrents(ctx context.Context, category string) ([]qbittorrent.Torrent, error)
	TorrentsByTag(ctx context.Context, tag string) ([]qbittorrent.Torrent, error)
	DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error
}

// Organizer moves a completed download into the library.
type Organizer interface {
	OrganizeDownload(ctx context.Context, game *models.Game, sourcePath string) error
}

// GrabResult is returned by GrabRelease. ReleaseID is -1 for dry runs.
type GrabResult struct {
	ReleaseID   int64  `json:"releaseId"`
	TorrentHash string `json:"torrentHash,omitempty"`
}

// Service owns the grab and reconciliation paths.
type Service struct {
	games     *database.GameRepo
	releases  *database.ReleaseRepo
	history   *database.HistoryRepo
	daemon    Daemon
	organizer Organizer
	settings  *settings.Service
	logger    zerolog.Logger
}

// NewService creates a download service.
func NewService(
	games *database.GameRepo,
	releases *database.ReleaseRepo,
	history *database.HistoryRepo,
	daemon Daemon,
	organizer Organizer,
	settingsSvc *settings.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		games:     games,
		releases:  releases,
		history:   history,
		daemon:    daemon,
		organizer: organizer,
		settings:  settingsSvc,
		logger:    logger.With().Str("component", "download").Logger(),
	}
}

// GameTag returns the per-game daemon tag.
func GameTag(gameID int64) string {
	return "game-" + strconv.FormatInt(gameID, 10)
}

// GrabRelease sends a scored release to the daemon and records it.
// With dry_run enabled it logs the intent and makes no change at all.
func (s *Service) GrabRelease(ctx context.Context, gameID int64, scored scoring.ScoredRelease) (*GrabResult, error) {
	if !s.daemon.IsConfigured(ctx) {
		return nil, apperr.NotConfigured("qbittorrent", "torrent daemon is not configured")
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, apperr.Database("failed to load game", err)
	}
	if game == nil {
		return nil, apperr.NotFound(fmt.Sprintf("game %d not found", gameID))
	}

	if s.settings.DryRun(ctx) {
		s.logger.Info().
			Str("game", game.Title).
			Str("release", scored.Title).
			Int("score", scored.Score).
			Str("url", scored.DownloadURL).
			Msg("Dry run: would grab release")
		return &GrabResult{ReleaseID: -1}, nil
	}

	release := &models.Release{
		GameID:      gameID,
		Title:       scored.Title,
		Size:        scored.Size,
		Seeders:     scored.Seeders,
		DownloadURL: scored.DownloadURL,
		Indexer:     scored.Indexer,
		Quality:     scored.Quality,
		Status:      models.ReleaseStatusPending,
		TorrentHash: qbittorrent.ParseMagnetHash(scored.DownloadURL),
	}
	releaseID, err := s.releases.Create(ctx, release)
	if err != nil {
		return nil, apperr.Database("failed to create release", err)
	}
	release.ID = releaseID

	category := s.settings.QbitCategory(ctx)
	addErr := s.daemon.AddTorrent(ctx, scored.DownloadURL, qbittorrent.AddOptions{
		Category: category,
		Tags:     category + "," + GameTag(gameID),
		Paused:   false,
	})
	if addErr != nil {
		if err := s.releases.UpdateStatus(ctx, release.ID, models.ReleaseStatusFailed); err != nil {
			s.logger.Error().Err(err).Int64("releaseId", release.ID).Msg("Failed to mark release failed")
		}
		return nil, addErr
	}

	hash := release.TorrentHash
	if hash == "" {
		hash = s.lookupAddedHash(ctx, gameID)
	}
	if hash != "" && hash != release.TorrentHash {
		if err := s.releases.SetTorrentHash(ctx, release.ID, hash); err != nil {
			s.logger.Warn().Err(err).Int64("releaseId", release.ID).Msg("Failed to store torrent hash")
		}
	}

	if err := s.releases.UpdateStatus(ctx, release.ID, models.ReleaseStatusDownloading); err != nil {
		return nil, apperr.Database("failed to update release status", err)
	}
	if err := s.games.UpdateStatus(ctx, gameID, models.GameStatusDownloading); err != nil {
		return nil, apperr.Database("failed to update game status", err)
	}

	if err := s.history.Record(ctx, &models.HistoryEntry{
		GameID:       gameID,
		Event:        models.HistoryEventGrabbed,
		ReleaseTitle: scored.Title,
		Indexer:      scored.Indexer,
		Detail:       fmt.Sprintf("score=%d seeders=%d", scored.Score, scored.Seeders),
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record grab history")
	}

	s.logger.Info().
		Str("game", game.Title).
		Str("release", scored.Title).
		Str("hash", hash).
		Msg("Grabbed release")

	return &GrabResult{ReleaseID: release.ID, TorrentHash: hash}, nil
}

// lookupAddedHash resolves the hash of a just-added torrent via its
// game tag, picking the newest addition. Used when the download URL is
// not a magnet link so no hash was parseable up front.
func (s *Service) lookupAddedHash(ctx context.Context, gameID int64) string {
	torrents, err := s.daemon.TorrentsByTag(ctx, GameTag(gameID))
	if err != nil || len(torrents) == 0 {
		return ""
	}
	newest := torrents[0]
	for _, t := range torrents[1:] {
		if t.AddedOn > newest.AddedOn {
			newest = t
		}
	}
	return strings.ToLower(newest.Hash)
}

// ActiveDownloads lists daemon torrents in the configured category,
// excluding completed ones unless asked for.
func (s *Service) ActiveDownloads(ctx context.Context, includeCompleted bool) ([]qbittorrent.Torrent, error) {
	torrents, err := s.daemon.Torrents(ctx, s.settings.QbitCategory(ctx))
	if err != nil {
		return nil, err
	}
	if includeCompleted {
		return torrents, nil
	}
	active := make([]qbittorrent.Torrent, 0, len(torrents))
	for _, t := range torrents {
		if !t.Complete() {
			active = append(active, t)
		}
	}
	return active, nil
}

// SyncDownloadStatus reconciles daemon torrent state into active
// releases: completions finish the game and trigger the organizer,
// daemon errors fail the release for the scheduler to reset.
func (s *Service) SyncDownloadStatus(ctx context.Context) error {
	active, err := s.releases.ListActive(ctx)
	if err != nil {
		return apperr.Database("failed to load active releases", err)
	}
	if len(active) == 0 {
		return nil
	}

	torrents, err := s.daemon.Torrents(ctx, s.settings.QbitCategory(ctx))
	if err != nil {
		return err
	}

	for _, release := range active {
		torrent := matchTorrent(release, torrents)
		if torrent == nil {
			continue
		}
		if release.TorrentHash == "" && torrent.Hash != "" {
			// Backfill hashes from prefix matches so future syncs are exact.
			if err := s.releases.SetTorrentHash(ctx, release.ID, strings.ToLower(torrent.Hash)); err != nil {
				s.logger.Warn().Err(err).Int64("releaseId", release.ID).Msg("Failed to backfill torrent hash")
			}
		}

		switch {
		case torrent.Complete():
			if err := s.completeRelease(ctx, release, torrent); err != nil {
				s.logger.Error().Err(err).Int64("releaseId", release.ID).Msg("Failed to complete release")
			}
		case torrent.Errored():
			if err := s.releases.UpdateStatus(ctx, release.ID, models.ReleaseStatusFailed); err != nil {
				s.logger.Error().Err(err).Int64("releaseId", release.ID).Msg("Failed to fail release")
			} else {
				s.recordHistory(ctx, release, models.HistoryEventFailed, "daemon reported error state")
			}
		case release.Status == models.ReleaseStatusPending:
			if err := s.releases.UpdateStatus(ctx, release.ID, models.ReleaseStatusDownloading); err != nil {
				s.logger.Error().Err(err).Int64("releaseId", release.ID).Msg("Failed to advance release")
			}
		}
	}
	return nil
}

func (s *Service) completeRelease(ctx context.Context, release *models.Release, torrent *qbittorrent.Torrent) error {
	if err := s.releases.UpdateStatus(ctx, release.ID, models.ReleaseStatusCompleted); err != nil {
		return err
	}
	game, err := s.games.GetByID(ctx, release.GameID)
	if err != nil {
		return err
	}
	if game == nil {
		s.logger.Warn().Int64("gameId", release.GameID).Msg("Completed release for missing game")
		return nil
	}

	if err := s.games.UpdateStatus(ctx, game.ID, models.GameStatusDownloaded); err != nil {
		return err
	}
	version := scoring.ParseVersion(release.Title)
	if err := s.games.SetInstalled(ctx, game.ID, version, release.Quality); err != nil {
		s.logger.Warn().Err(err).Int64("gameId", game.ID).Msg("Failed to record installed version")
	}

	sourcePath := filepath.Join(torrent.SavePath, torrent.Name)
	if err := s.organizer.OrganizeDownload(ctx, game, sourcePath); err != nil {
		s.logger.Error().Err(err).
			Str("game", game.Title).
			Str("path", sourcePath).
			Msg("Failed to organize completed download")
	}

	s.recordHistory(ctx, release, models.HistoryEventCompleted, "")
	s.logger.Info().Str("game", game.Title).Str("release", release.Title).Msg("Download completed")
	return nil
}

func (s *Service) recordHistory(ctx context.Context, release *models.Release, event models.HistoryEvent, detail string) {
	if err := s.history.Record(ctx, &models.HistoryEntry{
		GameID:       release.GameID,
		Event:        event,
		ReleaseTitle: release.Title,
		Indexer:      release.Indexer,
		Detail:       detail,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record history")
	}
}

// matchTorrent finds the daemon torrent for a release: exact hash match
// when a hash is stored, else the 20-character normalized title prefix
// heuristic as a fallback for legacy rows.
func matchTorrent(release *models.Release, torrents []qbittorrent.Torrent) *qbittorrent.Torrent {
	if release.TorrentHash != "" {
		for i := range torrents {
			if strings.EqualFold(torrents[i].Hash, release.TorrentHash) {
				return &torrents[i]
			}
		}
		return nil
	}
	prefix := titlePrefix(release.Title)
	for i := range torrents {
		if titlePrefix(torrents[i].Name) == prefix {
			return &torrents[i]
		}
	}
	return nil
}

func titlePrefix(title string) string {
	normalized := scoring.Normalize(title)
	normalized = strings.ReplaceAll(normalized, " ", "")
	if len(normalized) > 20 {
		normalized = normalized[:20]
	}
	return normalized
}

// RemoveOrphanedTorrents deletes daemon torrents tagged for games that
// no longer exist. Returns the number removed.
func (s *Service) RemoveOrphanedTorrents(ctx context.Context, deleteFiles bool) (int, error) {
	torrents, err := s.daemon.Torrents(ctx, s.settings.QbitCategory(ctx))
	if err != nil {
		return 0, err
	}

	type tagged struct {
		hash   string
		gameID int64
	}
	var candidates []tagged
	idSet := map[int64]struct{}{}
	for _, t := range torrents {
		gameID, ok := parseGameTag(t.Tags)
		if !ok {
			continue
		}
		candidates = append(candidates, tagged{hash: t.Hash, gameID: gameID})
		idSet[gameID] = struct{}{}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	existing, err := s.games.FindByIDs(ctx, ids)
	if err != nil {
		return 0, apperr.Database("failed to load games", err)
	}

	var orphaned []string
	for _, c := range candidates {
		if _, ok := existing[c.gameID]; !ok {
			orphaned = append(orphaned, c.hash)
		}
	}
	if len(orphaned) == 0 {
		return 0, nil
	}

	if err := s.daemon.DeleteTorrents(ctx, orphaned, deleteFiles); err != nil {
		return 0, err
	}
	s.logger.Info().Int("count", len(orphaned)).Msg("Removed orphaned torrents")
	return len(orphaned), nil
}

func parseGameTag(tagsCSV string) (int64, bool) {
	for _, tag := range strings.Split(tagsCSV, ",") {
		tag = strings.TrimSpace(tag)
		if rest, ok := strings.CutPrefix(tag, "game-"); ok {
			if id, err := strconv.ParseInt(rest, 10, 64); err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

// CancelDownload removes a torrent and fails the matching release, if
// any, so the scheduler resets its game on the next tick.
func (s *Service) CancelDownload(ctx context.Context, hash string, deleteFiles bool) error {
	if err := s.daemon.DeleteTorrents(ctx, []string{hash}, deleteFiles); err != nil {
		return err
	}
	active, err := s.releases.ListActive(ctx)
	if err != nil {
		return apperr.Database("failed to load active releases", err)
	}
	for _, release := range active {
		if strings.EqualFold(release.TorrentHash, hash) {
			if err := s.releases.UpdateStatus(ctx, release.ID, models.ReleaseStatusFailed); err != nil {
				return apperr.Database("failed to fail cancelled release", err)
			}
			s.recordHistory(ctx, release, models.HistoryEventFailed, "cancelled")
			break
		}
	}
	s.logger.Info().Str("hash", hash).Bool("deleteFiles", deleteFiles).Msg("Cancelled download")
	return nil
}

// FailedResetResult summarizes one failed-release reset pass.
type FailedResetResult struct {
	ReleasesDeleted int
	GamesReset      int
}

// ResetFailedDownloads deletes failed releases and flips their games
// back to wanted in two batch statements. Games that vanished are
// logged; their releases are still deleted.
func (s *Service) ResetFailedDownloads(ctx context.Context) (*FailedResetResult, error) {
	failed, err := s.releases.ListByStatus(ctx, models.ReleaseStatusFailed)
	if err != nil {
		return nil, apperr.Database("failed to load failed releases", err)
	}
	if len(failed) == 0 {
		return &FailedResetResult{}, nil
	}

	idSet := map[int64]struct{}{}
	releaseIDs := make([]int64, 0, len(failed))
	for _, r := range failed {
		releaseIDs = append(releaseIDs, r.ID)
		idSet[r.GameID] = struct{}{}
	}
	gameIDs := make([]int64, 0, len(idSet))
	for id := range idSet {
		gameIDs = append(gameIDs, id)
	}

	games, err := s.games.FindByIDs(ctx, gameIDs)
	if err != nil {
		return nil, apperr.Database("failed to load games for reset", err)
	}

	resetSet := map[int64]struct{}{}
	for _, r := range failed {
		game, ok := games[r.GameID]
		if !ok {
			s.logger.Warn().
				Int64("gameId", r.GameID).
				Str("release", r.Title).
				Msg("Failed release references missing game")
			continue
		}
		if game.Monitored && game.Status == models.GameStatusDownloading {
			resetSet[game.ID] = struct{}{}
		}
	}

	resetIDs := make([]int64, 0, len(resetSet))
	for id := range resetSet {
		resetIDs = append(resetIDs, id)
	}
	if len(resetIDs) > 0 {
		if err := s.games.BatchUpdateStatus(ctx, resetIDs, models.GameStatusWanted); err != nil {
			return nil, apperr.Database("failed to reset games", err)
		}
	}
	if err := s.releases.BatchDelete(ctx, releaseIDs); err != nil {
		return nil, apperr.Database("failed to delete failed releases", err)
	}

	s.logger.Info().
		Int("releases", len(releaseIDs)).
		Int("games", len(resetIDs)).
		Msg("Reset failed downloads")

	return &FailedResetResult{ReleasesDeleted: len(releaseIDs), GamesReset: len(resetIDs)}, nil
}

// Recent returns the newest download history entries.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	return s.history.Recent(ctx, limit)
}
