package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gamearr/gamearr/internal/models"
)

// HistoryRepo provides persistence for download-history events.
type HistoryRepo struct {
	conn *sql.DB
}

// NewHistoryRepo creates a history repository.
func NewHistoryRepo(conn *sql.DB) *HistoryRepo {
	return &HistoryRepo{conn: conn}
}

// Record appends a download lifecycle event.
func (r *HistoryRepo) Record(ctx context.Context, e *models.HistoryEntry) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO download_history (game_id, event, release_title, indexer, detail)
		VALUES (?, ?, ?, ?, ?)`,
		e.GameID, e.Event, e.ReleaseTitle, e.Indexer, e.Detail)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// Recent returns the newest history entries up to limit.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, game_id, event, release_title, indexer, detail, created_at
		FROM download_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.GameID, &e.Event, &e.ReleaseTitle, &e.Indexer, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
