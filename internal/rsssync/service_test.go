package rsssync

import (
	"context"
	"testing"
	"time"

	"github.com/gamearr/gamearr/internal/download"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/scoring"
	"github.com/gamearr/gamearr/internal/settings"
	"github.com/gamearr/gamearr/internal/testutil"
)

type fakeIndexer struct {
	configured bool
	items      []prowlarr.Release
	fetches    int
}

func (f *fakeIndexer) IsConfigured(context.Context) bool { return f.configured }

func (f *fakeIndexer) RSS(_ context.Context, _ []int, _ int) ([]prowlarr.Release, error) {
	f.fetches++
	return f.items, nil
}

type fakeDownloader struct {
	grabs []int64
}

func (f *fakeDownloader) GrabRelease(_ context.Context, gameID int64, _ scoring.ScoredRelease) (*download.GrabResult, error) {
	f.grabs = append(f.grabs, gameID)
	return &download.GrabResult{ReleaseID: int64(len(f.grabs))}, nil
}

func newSync(t *testing.T) (*Service, *fakeIndexer, *fakeDownloader, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	indexer := &fakeIndexer{configured: true}
	downloader := &fakeDownloader{}
	settingsSvc := settings.NewService(tdb.Repos.Settings, testutil.NopLogger())
	svc := NewService(tdb.Repos.Games, indexer, downloader, settingsSvc, testutil.NopLogger())
	return svc, indexer, downloader, tdb
}

func TestRunOnceGrabsAndDedupsAcrossTicks(t *testing.T) {
	svc, indexer, downloader, tdb := newSync(t)
	ctx := context.Background()

	hades, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 1, Title: "Hades", Year: 2020, Monitored: true, Status: models.GameStatusWanted})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{IgdbID: 2, Title: "Celeste", Monitored: true, Status: models.GameStatusWanted}); err != nil {
		t.Fatal(err)
	}

	indexer.items = []prowlarr.Release{
		{GUID: "a", Title: "Some TV Show S01", Seeders: 80, Size: 4 << 30, PublishedAt: time.Now()},
		{GUID: "b", Title: "Hades v1.38 [GOG]", Seeders: 42, Size: 8 << 30, PublishedAt: time.Now()},
		{GUID: "c", Title: "Hades v1.37 Repack", Seeders: 60, Size: 8 << 30, PublishedAt: time.Now()},
	}

	result := svc.RunOnce(ctx)
	if result == nil {
		t.Fatal("RunOnce returned nil")
	}
	if result.New != 3 || result.Grabbed != 1 {
		t.Errorf("result = %+v, want 3 new, 1 grabbed", result)
	}
	// Item c also matches Hades, but the game left the working set when
	// item b was grabbed, so only one grab is delegated.
	if len(downloader.grabs) != 1 || downloader.grabs[0] != hades.ID {
		t.Errorf("grabs = %v, want [%d]", downloader.grabs, hades.ID)
	}
	for _, guid := range []string{"a", "b", "c"} {
		if !svc.processed.Contains(guid) {
			t.Errorf("guid %q should be marked processed", guid)
		}
	}

	// Same feed on the next tick: everything is already processed.
	second := svc.RunOnce(ctx)
	if second.New != 0 || second.Grabbed != 0 {
		t.Errorf("second tick = %+v, want no new items", second)
	}
}

func TestRunOnceSkipsWhenIndexerUnconfigured(t *testing.T) {
	svc, indexer, _, tdb := newSync(t)
	ctx := context.Background()
	indexer.configured = false

	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{Title: "Hades", Monitored: true, Status: models.GameStatusWanted}); err != nil {
		t.Fatal(err)
	}

	result := svc.RunOnce(ctx)
	if result == nil || result.Items != 0 {
		t.Errorf("result = %+v, want zero-work tick", result)
	}
	if indexer.fetches != 0 {
		t.Errorf("fetches = %d, want 0", indexer.fetches)
	}
}

func TestRunOnceSkipsWithoutWantedGames(t *testing.T) {
	svc, indexer, _, tdb := newSync(t)
	ctx := context.Background()

	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{Title: "Hades", Monitored: true, Status: models.GameStatusDownloaded}); err != nil {
		t.Fatal(err)
	}

	svc.RunOnce(ctx)
	if indexer.fetches != 0 {
		t.Error("feed should not be fetched with no wanted games")
	}
}

func TestRunOnceBelowThresholdDoesNotGrab(t *testing.T) {
	svc, indexer, downloader, tdb := newSync(t)
	ctx := context.Background()

	if _, err := tdb.Repos.Games.Create(ctx, &models.Game{Title: "Hades", Monitored: true, Status: models.GameStatusWanted}); err != nil {
		t.Fatal(err)
	}
	indexer.items = []prowlarr.Release{
		{GUID: "x", Title: "Hades [GOG]", Seeders: 1, Size: 8 << 30, PublishedAt: time.Now()},
	}

	result := svc.RunOnce(ctx)
	if result.Grabbed != 0 || len(downloader.grabs) != 0 {
		t.Errorf("low-seeder item must not be grabbed, result = %+v", result)
	}
	if !svc.processed.Contains("x") {
		t.Error("item is still marked processed even when not grabbed")
	}
}
