// Package organizer moves completed downloads into the library under
// a canonical "Title (Year)" folder.
package organizer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/settings"
)

// sizeTolerance treats a pre-existing target within this many bytes of
// the source as already organized.
const sizeTolerance = 1 << 20

// Service organizes completed downloads into library folders.
type Service struct {
	libraries *database.LibraryRepo
	games     *database.GameRepo
	settings  *settings.Service
	logger    zerolog.Logger
}

// NewService creates a file organizer.
func NewService(libraries *database.LibraryRepo, games *database.GameRepo, settingsSvc *settings.Service, logger zerolog.Logger) *Service {
	return &Service{
		libraries: libraries,
		games:     games,
		settings:  settingsSvc,
		logger:    logger.With().Str("component", "organizer").Logger(),
	}
}

// OrganizeDownload moves a finished download into the game's library
// root and records the resulting folder path on the game.
func (s *Service) OrganizeDownload(ctx context.Context, game *models.Game, sourcePath string) error {
	root, err := s.resolveRoot(ctx, game)
	if err != nil {
		return err
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return apperr.FileSystem("source path not accessible", err)
	}

	folderName := FolderName(game.Title, game.Year)
	targetPath, alreadyOrganized, err := s.resolveTarget(root, folderName, sourcePath)
	if err != nil {
		return err
	}

	if alreadyOrganized {
		s.logger.Info().Str("game", game.Title).Str("path", targetPath).Msg("Download already organized")
		return s.games.SetFolderPath(ctx, game.ID, targetPath)
	}

	if err := os.MkdirAll(targetPath, 0o755); err != nil {
		return apperr.FileSystem("failed to create target folder", err)
	}

	if info.IsDir() {
		if err := moveDirContents(sourcePath, targetPath); err != nil {
			return err
		}
		if err := os.Remove(sourcePath); err != nil {
			s.logger.Warn().Err(err).Str("path", sourcePath).Msg("Failed to remove empty source directory")
		}
	} else {
		if err := moveEntry(sourcePath, filepath.Join(targetPath, filepath.Base(sourcePath))); err != nil {
			return err
		}
	}

	s.logger.Info().
		Str("game", game.Title).
		Str("from", sourcePath).
		Str("to", targetPath).
		Msg("Organized download")

	return s.games.SetFolderPath(ctx, game.ID, targetPath)
}

// resolveRoot picks the library root: the game's explicit library, the
// highest-priority library, or the legacy library_path setting.
func (s *Service) resolveRoot(ctx context.Context, game *models.Game) (string, error) {
	if game.LibraryID != nil {
		library, err := s.libraries.GetByID(ctx, *game.LibraryID)
		if err != nil {
			return "", apperr.Database("failed to load library", err)
		}
		if library != nil {
			return library.Path, nil
		}
	}

	library, err := s.libraries.First(ctx)
	if err != nil {
		return "", apperr.Database("failed to load libraries", err)
	}
	if library != nil {
		return library.Path, nil
	}

	if path, ok := s.settings.Get(ctx, settings.KeyLibraryPath); ok && path != "" {
		return path, nil
	}
	return "", apperr.NotConfigured("organizer", "no library root configured")
}

// resolveTarget returns the destination folder, appending " (n)" until
// a free name is found. When an existing candidate already holds the
// source content (size within tolerance) it is returned with
// alreadyOrganized set.
func (s *Service) resolveTarget(root, folderName, sourcePath string) (target string, alreadyOrganized bool, err error) {
	base := filepath.Join(root, folderName)
	if err := ValidateWithin(root, base); err != nil {
		return "", false, err
	}

	sourceSize, err := treeSize(sourcePath)
	if err != nil {
		return "", false, apperr.FileSystem("failed to size source", err)
	}

	candidate := base
	for n := 1; ; n++ {
		info, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, false, nil
		}
		if err != nil {
			return "", false, apperr.FileSystem("failed to stat target", err)
		}
		if info.IsDir() {
			existingSize, err := treeSize(candidate)
			if err == nil && diff(existingSize, sourceSize) <= sizeTolerance {
				return candidate, true, nil
			}
		}
		candidate = base + " (" + strconv.Itoa(n) + ")"
	}
}

// FolderName builds the canonical library folder name: sanitized title
// plus an optional " (year)" suffix.
func FolderName(title string, year int) string {
	name := Sanitize(title)
	if year > 0 {
		name = fmt.Sprintf("%s (%d)", name, year)
	}
	return name
}

// Sanitize strips characters invalid in folder names and collapses
// whitespace.
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return -1
		}
		return r
	}, name)
	return strings.Join(strings.Fields(cleaned), " ")
}

// ValidateWithin rejects paths that resolve outside the given root.
func ValidateWithin(root, path string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return apperr.FileSystem("invalid root path", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return apperr.FileSystem("invalid target path", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return apperr.PathTraversal(path)
	}
	return nil
}

func diff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// treeSize returns the recursive byte size of a file or directory.
func treeSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	return total, err
}

func moveDirContents(source, target string) error {
	entries, err := os.ReadDir(source)
	if err != nil {
		return apperr.FileSystem("failed to read source directory", err)
	}
	for _, entry := range entries {
		from := filepath.Join(source, entry.Name())
		to := filepath.Join(target, entry.Name())
		if err := moveEntry(from, to); err != nil {
			return err
		}
	}
	return nil
}

// moveEntry renames, falling back to copy+delete across filesystems.
func moveEntry(from, to string) error {
	if err := os.Rename(from, to); err == nil {
		return nil
	}
	info, err := os.Stat(from)
	if err != nil {
		return apperr.FileSystem("failed to stat source entry", err)
	}
	if info.IsDir() {
		if err := os.MkdirAll(to, info.Mode().Perm()); err != nil {
			return apperr.FileSystem("failed to create target directory", err)
		}
		if err := moveDirContents(from, to); err != nil {
			return err
		}
		if err := os.Remove(from); err != nil {
			return apperr.FileSystem("failed to remove source directory", err)
		}
		return nil
	}
	if err := copyFile(from, to, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Remove(from); err != nil {
		return apperr.FileSystem("failed to remove source file", err)
	}
	return nil
}

func copyFile(from, to string, perm os.FileMode) error {
	src, err := os.Open(from)
	if err != nil {
		return apperr.FileSystem("failed to open source file", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return apperr.FileSystem("failed to create target file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return apperr.FileSystem("failed to copy file", err)
	}
	return dst.Sync()
}
