package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SettingRepo provides persistence for key/value settings.
type SettingRepo struct {
	conn *sql.DB
}

// NewSettingRepo creates a setting repository.
func NewSettingRepo(conn *sql.DB) *SettingRepo {
	return &SettingRepo{conn: conn}
}

// ErrSettingNotFound is returned when a key has no row.
var ErrSettingNotFound = errors.New("setting not found")

// Get returns the raw value for a key.
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set upserts a value against the unique key index in a single statement.
func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (r *SettingRepo) Delete(ctx context.Context, key string) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// All returns every stored key/value pair.
func (r *SettingRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, rows.Err()
}
