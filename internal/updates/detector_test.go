package updates

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/testutil"
)

type fakeIndexer struct {
	releases    []prowlarr.Release
	searchCalls atomic.Int32
	block       chan struct{}
}

func (f *fakeIndexer) IsConfigured(context.Context) bool { return true }

func (f *fakeIndexer) Search(context.Context, string, []int, int) ([]prowlarr.Release, error) {
	f.searchCalls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.releases, nil
}

func newDetector(t *testing.T) (*Detector, *fakeIndexer, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	indexer := &fakeIndexer{}
	detector := NewDetector(tdb.Repos.Games, tdb.Repos.Updates, indexer, testutil.NopLogger())
	return detector, indexer, tdb
}

func downloadedGame(t *testing.T, tdb *testutil.TestDB, game *models.Game) *models.Game {
	t.Helper()
	game.Status = models.GameStatusDownloaded
	created, err := tdb.Repos.Games.Create(context.Background(), game)
	if err != nil {
		t.Fatal(err)
	}
	// Create defaults status to wanted; force downloaded.
	if err := tdb.Repos.Games.UpdateStatus(context.Background(), created.ID, models.GameStatusDownloaded); err != nil {
		t.Fatal(err)
	}
	created.Status = models.GameStatusDownloaded
	return created
}

func TestVersionBumpDetection(t *testing.T) {
	detector, indexer, tdb := newDetector(t)
	ctx := context.Background()

	game := downloadedGame(t, tdb, &models.Game{Title: "Stardew Valley"})
	if err := tdb.Repos.Games.SetInstalled(ctx, game.ID, "1.0.0", ""); err != nil {
		t.Fatal(err)
	}

	indexer.releases = []prowlarr.Release{{
		Title:       "Stardew Valley v1.6.3",
		DownloadURL: "https://indexer.example/1",
		Seeders:     25,
		Size:        1 << 30,
	}}

	created, err := detector.CheckGameForUpdates(ctx, game.ID)
	if err != nil {
		t.Fatalf("CheckGameForUpdates failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d updates, want 1", len(created))
	}
	if created[0].UpdateType != models.UpdateTypeVersion || created[0].Version != "1.6.3" {
		t.Errorf("update = %+v, want version 1.6.3", created[0])
	}

	updated, _ := tdb.Repos.Games.GetByID(ctx, game.ID)
	if !updated.UpdateAvailable {
		t.Error("UpdateAvailable not set")
	}
	if updated.LatestVersion != "1.6.3" {
		t.Errorf("LatestVersion = %q, want 1.6.3", updated.LatestVersion)
	}
	if updated.LastUpdateCheck == nil || time.Since(*updated.LastUpdateCheck) > time.Minute {
		t.Error("LastUpdateCheck not recorded")
	}
}

func TestOlderVersionIgnored(t *testing.T) {
	detector, indexer, tdb := newDetector(t)
	ctx := context.Background()

	game := downloadedGame(t, tdb, &models.Game{Title: "Stardew Valley"})
	if err := tdb.Repos.Games.SetInstalled(ctx, game.ID, "1.6.3", ""); err != nil {
		t.Fatal(err)
	}
	indexer.releases = []prowlarr.Release{{
		Title:       "Stardew Valley v1.5.0",
		DownloadURL: "https://indexer.example/1",
	}}

	created, err := detector.CheckGameForUpdates(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Errorf("created = %d updates, want 0 for an older version", len(created))
	}
}

func TestSkipsNonDownloadedGames(t *testing.T) {
	detector, indexer, tdb := newDetector(t)
	ctx := context.Background()

	game, err := tdb.Repos.Games.Create(ctx, &models.Game{Title: "Hades", Status: models.GameStatusWanted})
	if err != nil {
		t.Fatal(err)
	}

	created, err := detector.CheckGameForUpdates(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if created != nil {
		t.Error("wanted game must yield no updates")
	}
	if indexer.searchCalls.Load() != 0 {
		t.Error("indexer must not be called for non-downloaded games")
	}
}

func TestDedupAcrossInvocations(t *testing.T) {
	detector, indexer, tdb := newDetector(t)
	ctx := context.Background()

	game := downloadedGame(t, tdb, &models.Game{Title: "Stardew Valley"})
	indexer.releases = []prowlarr.Release{{
		Title:       "Stardew Valley v1.6.3",
		DownloadURL: "https://indexer.example/1",
	}}

	if _, err := detector.CheckGameForUpdates(ctx, game.ID); err != nil {
		t.Fatal(err)
	}
	second, err := detector.CheckGameForUpdates(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Errorf("second run created %d updates, want 0 (deduped)", len(second))
	}
	all, _ := tdb.Repos.Updates.ListByGame(ctx, game.ID)
	if len(all) != 1 {
		t.Errorf("stored updates = %d, want 1", len(all))
	}
}

func TestSingleFlightCoalescing(t *testing.T) {
	detector, indexer, tdb := newDetector(t)
	ctx := context.Background()

	game := downloadedGame(t, tdb, &models.Game{Title: "Stardew Valley"})
	indexer.block = make(chan struct{})
	indexer.releases = []prowlarr.Release{{
		Title:       "Stardew Valley v1.6.3",
		DownloadURL: "https://indexer.example/1",
	}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			detector.CheckGameForUpdates(ctx, game.ID) //nolint:errcheck
		}()
	}

	// Give the goroutines time to pile onto the single flight, then
	// release the one blocked search.
	time.Sleep(100 * time.Millisecond)
	close(indexer.block)
	wg.Wait()

	if calls := indexer.searchCalls.Load(); calls != 1 {
		t.Errorf("indexer calls = %d, want 1 during overlap", calls)
	}
}

func TestClassify(t *testing.T) {
	game := &models.Game{ID: 1, Title: "Hades", InstalledVersion: "1.0", InstalledQuality: "Repack"}

	tests := []struct {
		title    string
		wantType models.UpdateType
		wantNil  bool
	}{
		{"Hades - Pact of Punishment DLC", models.UpdateTypeDLC, false},
		{"Hades Definitive Edition", models.UpdateTypeDLC, false},
		{"Hades Season Pass", models.UpdateTypeDLC, false},
		{"Hades + Soundtrack Bundle", models.UpdateTypeDLC, false},
		{"Hades v2.0", models.UpdateTypeVersion, false},
		{"Hades [GOG]", models.UpdateTypeBetterRelease, false},
		{"Hades Scene rip", "", true},     // lower quality, no version
		{"Hades v0.9 old", "", true},      // older version, same quality rank
	}
	for _, tt := range tests {
		got := Classify(prowlarr.Release{Title: tt.title, DownloadURL: "u"}, game)
		if tt.wantNil {
			if got != nil {
				t.Errorf("Classify(%q) = %+v, want nil", tt.title, got)
			}
			continue
		}
		if got == nil {
			t.Errorf("Classify(%q) = nil, want %s", tt.title, tt.wantType)
			continue
		}
		if got.UpdateType != tt.wantType {
			t.Errorf("Classify(%q) = %s, want %s", tt.title, got.UpdateType, tt.wantType)
		}
	}
}

func TestDismissIdempotent(t *testing.T) {
	detector, _, tdb := newDetector(t)
	ctx := context.Background()

	game := downloadedGame(t, tdb, &models.Game{Title: "Hades"})
	if _, err := tdb.Repos.Updates.BatchCreate(ctx, []*models.GameUpdate{{
		GameID:      game.ID,
		UpdateType:  models.UpdateTypeVersion,
		Title:       "Hades v2.0",
		Version:     "2.0",
		DownloadURL: "https://indexer.example/1",
	}}); err != nil {
		t.Fatal(err)
	}
	updates, _ := tdb.Repos.Updates.ListByGame(ctx, game.ID)
	if len(updates) != 1 {
		t.Fatal("expected one update")
	}

	if err := detector.Dismiss(ctx, updates[0].ID); err != nil {
		t.Fatalf("first dismiss failed: %v", err)
	}
	if err := detector.Dismiss(ctx, updates[0].ID); err != nil {
		t.Fatalf("second dismiss failed: %v", err)
	}
	after, _ := tdb.Repos.Updates.GetByID(ctx, updates[0].ID)
	if after.Status != models.UpdateStatusDismissed {
		t.Errorf("status = %q, want dismissed", after.Status)
	}
}
