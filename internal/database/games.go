package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamearr/gamearr/internal/models"
)

const gameColumns = `id, igdb_id, title, year, platform, cover_url, folder_path, monitored, status,
	installed_version, installed_quality, update_policy, update_available, last_update_check,
	latest_version, library_id, added_at`

// GameRepo provides persistence for games.
type GameRepo struct {
	conn *sql.DB
}

// NewGameRepo creates a game repository.
func NewGameRepo(conn *sql.DB) *GameRepo {
	return &GameRepo{conn: conn}
}

func scanGame(row interface{ Scan(...any) error }) (*models.Game, error) {
	var g models.Game
	var lastCheck sql.NullTime
	var libraryID sql.NullInt64
	err := row.Scan(
		&g.ID, &g.IgdbID, &g.Title, &g.Year, &g.Platform, &g.CoverURL, &g.FolderPath,
		&g.Monitored, &g.Status, &g.InstalledVersion, &g.InstalledQuality, &g.UpdatePolicy,
		&g.UpdateAvailable, &lastCheck, &g.LatestVersion, &libraryID, &g.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastCheck.Valid {
		t := lastCheck.Time
		g.LastUpdateCheck = &t
	}
	if libraryID.Valid {
		id := libraryID.Int64
		g.LibraryID = &id
	}
	return &g, nil
}

// Create inserts a new game and returns it with its assigned id.
func (r *GameRepo) Create(ctx context.Context, g *models.Game) (*models.Game, error) {
	if g.Status == "" {
		g.Status = models.GameStatusWanted
	}
	if g.UpdatePolicy == "" {
		g.UpdatePolicy = models.UpdatePolicyNotify
	}
	res, err := r.conn.ExecContext(ctx, `
		INSERT INTO games (igdb_id, title, year, platform, cover_url, folder_path, monitored, status, update_policy, library_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.IgdbID, g.Title, g.Year, g.Platform, g.CoverURL, g.FolderPath, g.Monitored, g.Status, g.UpdatePolicy, g.LibraryID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a game by internal id, or nil when absent.
func (r *GameRepo) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// GetByIgdbID returns a game by external metadata id, or nil when absent.
func (r *GameRepo) GetByIgdbID(ctx context.Context, igdbID int64) (*models.Game, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE igdb_id = ?`, igdbID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return g, err
}

// List returns all games ordered by title.
func (r *GameRepo) List(ctx context.Context) ([]*models.Game, error) {
	return r.queryGames(ctx, `SELECT `+gameColumns+` FROM games ORDER BY title COLLATE NOCASE`)
}

// ListMonitoredByStatus returns monitored games in the given status.
func (r *GameRepo) ListMonitoredByStatus(ctx context.Context, status models.GameStatus) ([]*models.Game, error) {
	return r.queryGames(ctx,
		`SELECT `+gameColumns+` FROM games WHERE monitored = 1 AND status = ? ORDER BY added_at`, status)
}

// ListForUpdateCheck returns downloaded games whose update policy is not 'ignore'.
func (r *GameRepo) ListForUpdateCheck(ctx context.Context) ([]*models.Game, error) {
	return r.queryGames(ctx,
		`SELECT `+gameColumns+` FROM games WHERE status = ? AND update_policy != ? ORDER BY id`,
		models.GameStatusDownloaded, models.UpdatePolicyIgnore)
}

// FindByIDs batch-fetches the given ids into a map. Missing ids are
// simply absent from the result; no error is raised for them.
func (r *GameRepo) FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.Game, error) {
	result := make(map[int64]*models.Game, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + gameColumns + ` FROM games WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find games by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		result[g.ID] = g
	}
	return result, rows.Err()
}

// UpdateStatus sets the status of a single game.
func (r *GameRepo) UpdateStatus(ctx context.Context, id int64, status models.GameStatus) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, status, id)
	return err
}

// BatchUpdateStatus sets the status of a cohort of games in one statement.
func (r *GameRepo) BatchUpdateStatus(ctx context.Context, ids []int64, status models.GameStatus) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, status)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := `UPDATE games SET status = ? WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := r.conn.ExecContext(ctx, query, args...)
	return err
}

// SetMonitored toggles monitoring for a game.
func (r *GameRepo) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE games SET monitored = ? WHERE id = ?`, monitored, id)
	return err
}

// SetUpdatePolicy sets the update policy for a game.
func (r *GameRepo) SetUpdatePolicy(ctx context.Context, id int64, policy models.UpdatePolicy) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE games SET update_policy = ? WHERE id = ?`, policy, id)
	return err
}

// SetFolderPath records the organized folder for a game.
func (r *GameRepo) SetFolderPath(ctx context.Context, id int64, path string) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE games SET folder_path = ? WHERE id = ?`, path, id)
	return err
}

// SetInstalled records the installed version and quality after a completed download.
func (r *GameRepo) SetInstalled(ctx context.Context, id int64, version, quality string) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE games SET installed_version = ?, installed_quality = ? WHERE id = ?`, version, quality, id)
	return err
}

// SetUpdateAvailable flags a game as having update candidates and records
// the newest known version when one was detected.
func (r *GameRepo) SetUpdateAvailable(ctx context.Context, id int64, latestVersion string) error {
	if latestVersion != "" {
		_, err := r.conn.ExecContext(ctx,
			`UPDATE games SET update_available = 1, latest_version = ? WHERE id = ?`, latestVersion, id)
		return err
	}
	_, err := r.conn.ExecContext(ctx, `UPDATE games SET update_available = 1 WHERE id = ?`, id)
	return err
}

// TouchUpdateCheck records the time of the last update scan for a game.
func (r *GameRepo) TouchUpdateCheck(ctx context.Context, id int64, at time.Time) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE games SET last_update_check = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// Delete removes a game. Update candidates cascade; releases are left
// for the scheduler's failed-reset pass to clean up.
func (r *GameRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	return err
}

func (r *GameRepo) queryGames(ctx context.Context, query string, args ...any) ([]*models.Game, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
