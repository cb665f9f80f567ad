package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/testutil"
)

func writeGameFolder(t *testing.T, root string, parts ...string) string {
	t.Helper()
	dir := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "setup.exe"), []byte("installer"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newLibrary(t *testing.T) (*Service, *testutil.TestDB, *models.Library) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	root, err := tdb.Repos.Libraries.Create(context.Background(), &models.Library{
		Name: "Main", Path: t.TempDir(), Monitored: true, DownloadEnabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(tdb.Repos.Games, tdb.Repos.Libraries, tdb.Repos.LibraryFiles, testutil.NopLogger())
	return svc, tdb, root
}

func TestRefreshParsesAndMatches(t *testing.T) {
	svc, tdb, root := newLibrary(t)
	ctx := context.Background()

	hades, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 1, Title: "Hades", Year: 2020})
	if err != nil {
		t.Fatal(err)
	}

	// A category folder holding two game folders, plus an unmatched one
	// at the top level.
	writeGameFolder(t, root.Path, "PC", "Hades.v1.38.22-GOG")
	writeGameFolder(t, root.Path, "PC", "Celeste (2018)")
	writeGameFolder(t, root.Path, "Unknown.Game-CODEX")

	files, err := svc.Refresh(ctx, nil)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %d, want 3", len(files))
	}

	byTitle := map[string]*models.LibraryFile{}
	for _, f := range files {
		byTitle[f.ParsedTitle] = f
	}

	got := byTitle["Hades"]
	if got == nil || got.MatchedGameID == nil || *got.MatchedGameID != hades.ID {
		t.Errorf("Hades folder should match game %d, got %+v", hades.ID, got)
	}
	if got := byTitle["Celeste"]; got == nil || got.ParsedYear != 2018 || got.MatchedGameID != nil {
		t.Errorf("Celeste folder = %+v, want year 2018 and no match", got)
	}
	if got := byTitle["Unknown Game"]; got == nil || got.MatchedGameID != nil {
		t.Errorf("Unknown Game folder = %+v, want unmatched", got)
	}
}

func TestRefreshYearMismatchBlocksMatch(t *testing.T) {
	svc, tdb, root := newLibrary(t)
	ctx := context.Background()

	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{Title: "Celeste", Year: 2018}); err != nil {
		t.Fatal(err)
	}
	writeGameFolder(t, root.Path, "Celeste (1999)")

	files, err := svc.Refresh(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].MatchedGameID != nil {
		t.Errorf("files = %+v, want single unmatched folder", files)
	}
}

func TestRefreshPrunesVanishedFolders(t *testing.T) {
	svc, _, root := newLibrary(t)
	ctx := context.Background()

	keep := writeGameFolder(t, root.Path, "Keeper")
	gone := writeGameFolder(t, root.Path, "Goner")

	if _, err := svc.Refresh(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(gone); err != nil {
		t.Fatal(err)
	}

	files, err := svc.Refresh(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].FolderPath != keep {
		t.Errorf("files = %+v, want only %q", files, keep)
	}
}

func TestRefreshOnlyPrunesRequestedLibrary(t *testing.T) {
	svc, tdb, first := newLibrary(t)
	ctx := context.Background()

	second, err := tdb.Repos.Libraries.Create(ctx, &models.Library{
		Name: "Shelf", Path: t.TempDir(), Monitored: true, DownloadEnabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	hades := writeGameFolder(t, first.Path, "Hades")
	celeste := writeGameFolder(t, second.Path, "Celeste")

	if _, err := svc.Refresh(ctx, nil); err != nil {
		t.Fatal(err)
	}

	// Refreshing the first library must leave the second's cache alone.
	if _, err := svc.Refresh(ctx, &first.ID); err != nil {
		t.Fatal(err)
	}
	files, err := tdb.Repos.LibraryFiles.List(ctx, &second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].FolderPath != celeste {
		t.Fatalf("second library cache = %+v, want only %q", files, celeste)
	}

	// Even when the scan comes back empty, only the scanned library's
	// rows fall out.
	if err := os.RemoveAll(hades); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, &first.ID); err != nil {
		t.Fatal(err)
	}
	if files, err := tdb.Repos.LibraryFiles.List(ctx, &first.ID); err != nil || len(files) != 0 {
		t.Errorf("first library cache = %+v, %v, want empty", files, err)
	}
	if files, err := tdb.Repos.LibraryFiles.List(ctx, &second.ID); err != nil || len(files) != 1 {
		t.Errorf("second library cache = %+v, %v, want one row", files, err)
	}
}

func TestScanPrefersCache(t *testing.T) {
	svc, _, root := newLibrary(t)
	ctx := context.Background()

	writeGameFolder(t, root.Path, "Hades")
	if _, err := svc.Refresh(ctx, nil); err != nil {
		t.Fatal(err)
	}

	// A folder added after the refresh is invisible to the cached scan.
	writeGameFolder(t, root.Path, "Celeste")

	files, err := svc.Scan(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("cached scan = %d folders, want 1", len(files))
	}

	files, err = svc.Refresh(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("refreshed scan = %d folders, want 2", len(files))
	}
}

func TestScanUnknownLibrary(t *testing.T) {
	svc, _, _ := newLibrary(t)
	id := int64(9999)
	if _, err := svc.Refresh(context.Background(), &id); !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestFindDuplicateGames(t *testing.T) {
	svc, tdb, _ := newLibrary(t)
	ctx := context.Background()

	sized := t.TempDir()
	if err := os.WriteFile(filepath.Join(sized, "data.bin"), make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 1, Title: "Stardew Valley", FolderPath: sized})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 2, Title: "Stardew Valey"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 3, Title: "Hades"}); err != nil {
		t.Fatal(err)
	}

	groups, err := svc.FindDuplicateGames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Games) != 2 {
		t.Fatalf("group size = %d, want 2", len(groups[0].Games))
	}
	for _, entry := range groups[0].Games {
		if entry.Game.ID == a.ID && entry.FolderSize != 4096 {
			t.Errorf("FolderSize = %d, want 4096", entry.FolderSize)
		}
	}
}

func TestTitleSimilarity(t *testing.T) {
	if got := titleSimilarity("Hades", "hades"); got != 1 {
		t.Errorf("case difference should be exact match, got %v", got)
	}
	if got := titleSimilarity("Hades", "Hades II"); got >= duplicateSimilarity {
		t.Errorf("distinct sequels must stay below threshold, got %v", got)
	}
}
