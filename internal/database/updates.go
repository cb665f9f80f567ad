package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gamearr/gamearr/internal/models"
)

const updateColumns = `id, game_id, update_type, title, version, size, quality, seeders, download_url, indexer, status, created_at`

// UpdateRepo provides persistence for game update candidates.
type UpdateRepo struct {
	conn *sql.DB
}

// NewUpdateRepo creates an update repository.
func NewUpdateRepo(conn *sql.DB) *UpdateRepo {
	return &UpdateRepo{conn: conn}
}

func scanUpdate(row interface{ Scan(...any) error }) (*models.GameUpdate, error) {
	var u models.GameUpdate
	err := row.Scan(
		&u.ID, &u.GameID, &u.UpdateType, &u.Title, &u.Version, &u.Size, &u.Quality,
		&u.Seeders, &u.DownloadURL, &u.Indexer, &u.Status, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListByGame returns all update candidates for a game, newest first.
func (r *UpdateRepo) ListByGame(ctx context.Context, gameID int64) ([]*models.GameUpdate, error) {
	return r.queryUpdates(ctx,
		`SELECT `+updateColumns+` FROM game_updates WHERE game_id = ? ORDER BY created_at DESC`, gameID)
}

// ListPending returns all pending update candidates, newest first.
func (r *UpdateRepo) ListPending(ctx context.Context) ([]*models.GameUpdate, error) {
	return r.queryUpdates(ctx,
		`SELECT `+updateColumns+` FROM game_updates WHERE status = ? ORDER BY created_at DESC`,
		models.UpdateStatusPending)
}

// GetByID returns an update candidate, or nil when absent.
func (r *UpdateRepo) GetByID(ctx context.Context, id int64) (*models.GameUpdate, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+updateColumns+` FROM game_updates WHERE id = ?`, id)
	u, err := scanUpdate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// BatchCreate inserts a batch of update candidates inside one transaction.
// Rows violating the (game_id, download_url) or (game_id, title) dedup
// keys are skipped via ON CONFLICT DO NOTHING.
func (r *UpdateRepo) BatchCreate(ctx context.Context, updates []*models.GameUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_updates (game_id, update_type, title, version, size, quality, seeders, download_url, indexer, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, u := range updates {
		status := u.Status
		if status == "" {
			status = models.UpdateStatusPending
		}
		res, err := stmt.ExecContext(ctx,
			u.GameID, u.UpdateType, u.Title, u.Version, u.Size, u.Quality, u.Seeders, u.DownloadURL, u.Indexer, status)
		if err != nil {
			return 0, fmt.Errorf("insert update %q: %w", u.Title, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// UpdateStatus sets the status of an update candidate. Dismissing an
// already-dismissed update is a no-op.
func (r *UpdateRepo) UpdateStatus(ctx context.Context, id int64, status models.UpdateStatus) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE game_updates SET status = ? WHERE id = ?`, status, id)
	return err
}

// DeleteByGame removes all update candidates for a game.
func (r *UpdateRepo) DeleteByGame(ctx context.Context, gameID int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM game_updates WHERE game_id = ?`, gameID)
	return err
}

func (r *UpdateRepo) queryUpdates(ctx context.Context, query string, args ...any) ([]*models.GameUpdate, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	var updates []*models.GameUpdate
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
