package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gamearr/gamearr/internal/models"
)

const libraryColumns = `id, name, path, platform, monitored, download_enabled, priority`
const libraryFileColumns = `id, folder_path, parsed_title, parsed_year, matched_game_id, library_id, ignored, scanned_at`

// LibraryRepo provides persistence for library roots.
type LibraryRepo struct {
	conn *sql.DB
}

// NewLibraryRepo creates a library repository.
func NewLibraryRepo(conn *sql.DB) *LibraryRepo {
	return &LibraryRepo{conn: conn}
}

func scanLibrary(row interface{ Scan(...any) error }) (*models.Library, error) {
	var l models.Library
	err := row.Scan(&l.ID, &l.Name, &l.Path, &l.Platform, &l.Monitored, &l.DownloadEnabled, &l.Priority)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a library root.
func (r *LibraryRepo) Create(ctx context.Context, l *models.Library) (*models.Library, error) {
	res, err := r.conn.ExecContext(ctx, `
		INSERT INTO libraries (name, path, platform, monitored, download_enabled, priority)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.Name, l.Path, l.Platform, l.Monitored, l.DownloadEnabled, l.Priority)
	if err != nil {
		return nil, fmt.Errorf("insert library: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a library root, or nil when absent.
func (r *LibraryRepo) GetByID(ctx context.Context, id int64) (*models.Library, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+libraryColumns+` FROM libraries WHERE id = ?`, id)
	l, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// List returns all library roots ordered by priority.
func (r *LibraryRepo) List(ctx context.Context) ([]*models.Library, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+libraryColumns+` FROM libraries ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("query libraries: %w", err)
	}
	defer rows.Close()

	var libraries []*models.Library
	for rows.Next() {
		l, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, l)
	}
	return libraries, rows.Err()
}

// First returns the highest-priority library root, or nil when none configured.
func (r *LibraryRepo) First(ctx context.Context) (*models.Library, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM libraries ORDER BY priority, id LIMIT 1`)
	l, err := scanLibrary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// Delete removes a library root.
func (r *LibraryRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM libraries WHERE id = ?`, id)
	return err
}

// LibraryFileRepo provides persistence for scanned game folders.
type LibraryFileRepo struct {
	conn *sql.DB
}

// NewLibraryFileRepo creates a library-file repository.
func NewLibraryFileRepo(conn *sql.DB) *LibraryFileRepo {
	return &LibraryFileRepo{conn: conn}
}

func scanLibraryFile(row interface{ Scan(...any) error }) (*models.LibraryFile, error) {
	var f models.LibraryFile
	var matchedGameID, libraryID sql.NullInt64
	err := row.Scan(&f.ID, &f.FolderPath, &f.ParsedTitle, &f.ParsedYear, &matchedGameID, &libraryID, &f.Ignored, &f.ScannedAt)
	if err != nil {
		return nil, err
	}
	if matchedGameID.Valid {
		id := matchedGameID.Int64
		f.MatchedGameID = &id
	}
	if libraryID.Valid {
		id := libraryID.Int64
		f.LibraryID = &id
	}
	return &f, nil
}

// Upsert inserts or refreshes a scanned folder keyed by folder_path.
func (r *LibraryFileRepo) Upsert(ctx context.Context, f *models.LibraryFile) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO library_files (folder_path, parsed_title, parsed_year, matched_game_id, library_id, ignored, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(folder_path) DO UPDATE SET
			parsed_title = excluded.parsed_title,
			parsed_year = excluded.parsed_year,
			matched_game_id = excluded.matched_game_id,
			library_id = excluded.library_id,
			scanned_at = CURRENT_TIMESTAMP`,
		f.FolderPath, f.ParsedTitle, f.ParsedYear, f.MatchedGameID, f.LibraryID, f.Ignored)
	return err
}

// List returns scanned folders, optionally restricted to one library.
func (r *LibraryFileRepo) List(ctx context.Context, libraryID *int64) ([]*models.LibraryFile, error) {
	query := `SELECT ` + libraryFileColumns + ` FROM library_files ORDER BY folder_path`
	args := []any{}
	if libraryID != nil {
		query = `SELECT ` + libraryFileColumns + ` FROM library_files WHERE library_id = ? ORDER BY folder_path`
		args = append(args, *libraryID)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query library files: %w", err)
	}
	defer rows.Close()

	var files []*models.LibraryFile
	for rows.Next() {
		f, err := scanLibraryFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteMissing removes rows whose folder is no longer present in the
// current scan. Folders that vanished from the filesystem fall out
// here. With libraryID set only that library's rows are candidates, so
// refreshing one library never prunes another's cache.
func (r *LibraryFileRepo) DeleteMissing(ctx context.Context, libraryID *int64, presentPaths []string) error {
	query := `DELETE FROM library_files`
	var clauses []string
	var args []any

	if libraryID != nil {
		clauses = append(clauses, `library_id = ?`)
		args = append(args, *libraryID)
	}
	if len(presentPaths) > 0 {
		placeholders := make([]string, len(presentPaths))
		for i, p := range presentPaths {
			placeholders[i] = "?"
			args = append(args, p)
		}
		clauses = append(clauses, `folder_path NOT IN (`+strings.Join(placeholders, ",")+`)`)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	_, err := r.conn.ExecContext(ctx, query, args...)
	return err
}

// SetIgnored toggles the ignored flag for a scanned folder.
func (r *LibraryFileRepo) SetIgnored(ctx context.Context, id int64, ignored bool) error {
	_, err := r.conn.ExecContext(ctx, `UPDATE library_files SET ignored = ? WHERE id = ?`, ignored, id)
	return err
}
