package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gamearr/gamearr/internal/models"
)

const releaseColumns = `id, game_id, title, size, seeders, download_url, indexer, quality, torrent_hash, status, grabbed_at`

// ReleaseRepo provides persistence for grabbed releases.
type ReleaseRepo struct {
	conn *sql.DB
}

// NewReleaseRepo creates a release repository.
func NewReleaseRepo(conn *sql.DB) *ReleaseRepo {
	return &ReleaseRepo{conn: conn}
}

func scanRelease(row interface{ Scan(...any) error }) (*models.Release, error) {
	var rel models.Release
	err := row.Scan(
		&rel.ID, &rel.GameID, &rel.Title, &rel.Size, &rel.Seeders, &rel.DownloadURL,
		&rel.Indexer, &rel.Quality, &rel.TorrentHash, &rel.Status, &rel.GrabbedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Create inserts a release row and returns its id.
func (r *ReleaseRepo) Create(ctx context.Context, rel *models.Release) (int64, error) {
	if rel.Status == "" {
		rel.Status = models.ReleaseStatusPending
	}
	res, err := r.conn.ExecContext(ctx, `
		INSERT INTO releases (game_id, title, size, seeders, download_url, indexer, quality, torrent_hash, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.GameID, rel.Title, rel.Size, rel.Seeders, rel.DownloadURL, rel.Indexer, rel.Quality, rel.TorrentHash, rel.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("insert release: %w", err)
	}
	return res.LastInsertId()
}

// GetByID returns a release, or nil when absent.
func (r *ReleaseRepo) GetByID(ctx context.Context, id int64) (*models.Release, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	rel, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rel, err
}

// ListActive returns releases whose transfer is still live
// (status pending or downloading).
func (r *ReleaseRepo) ListActive(ctx context.Context) ([]*models.Release, error) {
	return r.queryReleases(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE status IN (?, ?) ORDER BY grabbed_at`,
		models.ReleaseStatusPending, models.ReleaseStatusDownloading)
}

// ListByStatus returns releases in the given status.
func (r *ReleaseRepo) ListByStatus(ctx context.Context, status models.ReleaseStatus) ([]*models.Release, error) {
	return r.queryReleases(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE status = ? ORDER BY grabbed_at`, status)
}

// GetActiveByGame returns the live release for a game, or nil.
// At most one non-terminal release exists per game.
func (r *ReleaseRepo) GetActiveByGame(ctx context.Context, gameID int64) (*models.Release, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE game_id = ? AND status IN (?, ?) LIMIT 1`,
		gameID, models.ReleaseStatusPending, models.ReleaseStatusDownloading)
	rel, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rel, err
}

// UpdateStatus sets the status of a release.
func (r *ReleaseRepo) UpdateStatus(ctx context.Context, id int64, status models.ReleaseStatus) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE releases SET status = ? WHERE id = ?`, status, id)
	return err
}

// SetTorrentHash records the daemon hash backing a release.
func (r *ReleaseRepo) SetTorrentHash(ctx context.Context, id int64, hash string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE releases SET torrent_hash = ? WHERE id = ?`, hash, id)
	return err
}

// BatchDelete removes a cohort of releases in one statement.
func (r *ReleaseRepo) BatchDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `DELETE FROM releases WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := r.conn.ExecContext(ctx, query, args...)
	return err
}

func (r *ReleaseRepo) queryReleases(ctx context.Context, query string, args ...any) ([]*models.Release, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer rows.Close()

	var releases []*models.Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releases, rows.Err()
}
