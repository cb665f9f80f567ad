package library

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/models"
)

// duplicateSimilarity is the Levenshtein similarity threshold above
// which two game titles are considered duplicates.
const duplicateSimilarity = 0.8

// sizeWorkers bounds concurrent folder-size walks.
const sizeWorkers = 4

// Service imports on-disk game folders into the catalog.
type Service struct {
	games     *database.GameRepo
	libraries *database.LibraryRepo
	files     *database.LibraryFileRepo
	logger    zerolog.Logger
}

// NewService creates the library importer.
func NewService(games *database.GameRepo, libraries *database.LibraryRepo, files *database.LibraryFileRepo, logger zerolog.Logger) *Service {
	return &Service{
		games:     games,
		libraries: libraries,
		files:     files,
		logger:    logger.With().Str("component", "library").Logger(),
	}
}

// Scan returns the scanned folders for a library (or all libraries when
// libraryID is nil), preferring cached rows over a filesystem walk.
func (s *Service) Scan(ctx context.Context, libraryID *int64) ([]*models.LibraryFile, error) {
	cached, err := s.files.List(ctx, libraryID)
	if err != nil {
		return nil, apperr.Database("list library files", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}
	return s.Refresh(ctx, libraryID)
}

// Refresh walks the library roots, re-parses every game folder, matches
// against the catalog and replaces the cached scan.
func (s *Service) Refresh(ctx context.Context, libraryID *int64) ([]*models.LibraryFile, error) {
	roots, err := s.resolveRoots(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, apperr.NotConfigured("library", "no library roots configured")
	}

	games, err := s.games.List(ctx)
	if err != nil {
		return nil, apperr.Database("list games", err)
	}
	byTitle := indexGamesByTitle(games)

	var presentPaths []string
	for _, root := range roots {
		folders, err := ScanRoot(root.Path)
		if err != nil {
			s.logger.Error().Err(err).Str("path", root.Path).Msg("Library scan failed")
			continue
		}

		for _, folder := range folders {
			parsed := ParseFolderName(folder.Name)
			file := &models.LibraryFile{
				FolderPath:  folder.Path,
				ParsedTitle: parsed.Title,
				ParsedYear:  parsed.Year,
				LibraryID:   &root.ID,
			}
			if game := matchGame(byTitle, parsed); game != nil {
				file.MatchedGameID = &game.ID
			}
			if err := s.files.Upsert(ctx, file); err != nil {
				return nil, apperr.Database("upsert library file", err)
			}
			presentPaths = append(presentPaths, folder.Path)
		}

		s.logger.Info().
			Str("library", root.Name).
			Int("folders", len(folders)).
			Msg("Library scan finished")
	}

	if err := s.files.DeleteMissing(ctx, libraryID, presentPaths); err != nil {
		return nil, apperr.Database("prune vanished library files", err)
	}

	return s.files.List(ctx, libraryID)
}

func (s *Service) resolveRoots(ctx context.Context, libraryID *int64) ([]*models.Library, error) {
	if libraryID != nil {
		root, err := s.libraries.GetByID(ctx, *libraryID)
		if err != nil {
			return nil, apperr.Database("load library", err)
		}
		if root == nil {
			return nil, apperr.NotFound("library not found")
		}
		return []*models.Library{root}, nil
	}
	roots, err := s.libraries.List(ctx)
	if err != nil {
		return nil, apperr.Database("list libraries", err)
	}
	return roots, nil
}

func indexGamesByTitle(games []*models.Game) map[string][]*models.Game {
	byTitle := make(map[string][]*models.Game, len(games))
	for _, g := range games {
		key := strings.ToLower(g.Title)
		byTitle[key] = append(byTitle[key], g)
	}
	return byTitle
}

// matchGame finds a catalog game for a parsed folder: lowercase title
// equality, and year equality when both sides carry one.
func matchGame(byTitle map[string][]*models.Game, parsed ParsedFolder) *models.Game {
	for _, g := range byTitle[strings.ToLower(parsed.Title)] {
		if parsed.Year != 0 && g.Year != 0 && parsed.Year != g.Year {
			continue
		}
		return g
	}
	return nil
}

// DuplicateEntry is one game in a duplicate group, with its on-disk
// footprint when the folder path is known.
type DuplicateEntry struct {
	Game       *models.Game `json:"game"`
	FolderSize int64        `json:"folderSize"`
}

// DuplicateGroup is a set of games whose titles are near-identical.
type DuplicateGroup struct {
	Games []DuplicateEntry `json:"games"`
}

// FindDuplicateGames groups catalog entries whose titles are at least
// 80% similar by Levenshtein distance. Folder sizes are computed in
// parallel because the roots usually sit on slow storage.
func (s *Service) FindDuplicateGames(ctx context.Context) ([]DuplicateGroup, error) {
	games, err := s.games.List(ctx)
	if err != nil {
		return nil, apperr.Database("list games", err)
	}

	sizes := s.folderSizes(ctx, games)

	grouped := make([]bool, len(games))
	var groups []DuplicateGroup
	for i, a := range games {
		if grouped[i] {
			continue
		}
		group := DuplicateGroup{Games: []DuplicateEntry{{Game: a, FolderSize: sizes[a.ID]}}}
		for j := i + 1; j < len(games); j++ {
			if grouped[j] {
				continue
			}
			if titleSimilarity(a.Title, games[j].Title) >= duplicateSimilarity {
				grouped[j] = true
				group.Games = append(group.Games, DuplicateEntry{Game: games[j], FolderSize: sizes[games[j].ID]})
			}
		}
		if len(group.Games) > 1 {
			groups = append(groups, group)
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Games[0].Game.Title < groups[j].Games[0].Game.Title
	})
	return groups, nil
}

func (s *Service) folderSizes(ctx context.Context, games []*models.Game) map[int64]int64 {
	sizes := make(map[int64]int64, len(games))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(sizeWorkers)
	for _, game := range games {
		if game.FolderPath == "" {
			continue
		}
		g.Go(func() error {
			size := folderSize(game.FolderPath)
			mu.Lock()
			sizes[game.ID] = size
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return sizes
}

func folderSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// titleSimilarity is 1 - dist/maxLen over the lowercased titles.
func titleSimilarity(a, b string) float64 {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 1
	}
	longest := len(la)
	if len(lb) > longest {
		longest = len(lb)
	}
	if longest == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(la, lb)
	return 1 - float64(dist)/float64(longest)
}
