package updates

import (
	"context"
	"testing"
	"time"

	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/testutil"
)

func TestSweepAggregates(t *testing.T) {
	detector, indexer, tdb := newDetector(t)
	ctx := context.Background()

	g1 := downloadedGame(t, tdb, &models.Game{IgdbID: 1, Title: "Stardew Valley"})
	downloadedGame(t, tdb, &models.Game{IgdbID: 2, Title: "Hades"})
	ignored := downloadedGame(t, tdb, &models.Game{IgdbID: 3, Title: "Celeste"})
	if err := tdb.Repos.Games.SetUpdatePolicy(ctx, ignored.ID, models.UpdatePolicyIgnore); err != nil {
		t.Fatal(err)
	}
	if err := tdb.Repos.Games.SetInstalled(ctx, g1.ID, "1.0.0", ""); err != nil {
		t.Fatal(err)
	}

	// One candidate that is a version bump for g1 only; for Hades the
	// title doesn't classify and nothing is created.
	indexer.releases = []prowlarr.Release{{
		Title:       "Stardew Valley v1.6.3",
		DownloadURL: "https://indexer.example/1",
	}}

	job := NewJob(tdb.Repos.Games, detector, testutil.NopLogger())
	job.sleep = func(context.Context, time.Duration) {}

	result, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Checked != 2 {
		t.Errorf("Checked = %d, want 2 (ignore policy excluded)", result.Checked)
	}
	if int(indexer.searchCalls.Load()) != 2 {
		t.Errorf("indexer calls = %d, want 2", indexer.searchCalls.Load())
	}
}
