package scoring

import (
	"testing"
	"time"

	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hades", "hades"},
		{"Baldur's Gate 3", "baldurs gate 3"},
		{"DOOM: Eternal [GOG]", "doom eternal gog"},
		{"  spaced   out  ", "spaced out"},
		{"Sid Meier's Civilization VI", "sid meiers civilization vi"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScoreReleaseHappyPath(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	game := &models.Game{Title: "Hades", Year: 2020}
	release := prowlarr.Release{
		Title:       "Hades v1.38.22 [GOG]",
		Seeders:     42,
		Size:        8 << 30,
		PublishedAt: now.Add(-30 * 24 * time.Hour),
	}

	scored := ScoreRelease(release, game, now)

	// 100 base + 50 substring + 50 GOG + 10 seeders.
	if scored.Score != 210 {
		t.Errorf("Score = %d, want 210", scored.Score)
	}
	if scored.MatchConfidence != ConfidenceHigh {
		t.Errorf("MatchConfidence = %q, want high", scored.MatchConfidence)
	}
	if scored.Quality != QualityGOG {
		t.Errorf("Quality = %q, want GOG", scored.Quality)
	}
}

func TestScoreReleaseIsPure(t *testing.T) {
	now := time.Now()
	game := &models.Game{Title: "Celeste", Year: 2018}
	release := prowlarr.Release{Title: "Celeste (2018) GOG", Seeders: 10, Size: 2 << 30, PublishedAt: now}

	a := ScoreRelease(release, game, now)
	b := ScoreRelease(release, game, now)
	if a.Score != b.Score || a.MatchConfidence != b.MatchConfidence || a.Quality != b.Quality {
		t.Errorf("ScoreRelease not deterministic: %+v vs %+v", a, b)
	}
}

func TestScoreReleaseComponents(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	goodSize := int64(8 << 30)

	tests := []struct {
		name       string
		game       models.Game
		release    prowlarr.Release
		wantScore  int
		wantConf   string
	}{
		{
			name:      "year bonus",
			game:      models.Game{Title: "Hades", Year: 2020},
			release:   prowlarr.Release{Title: "Hades (2020)", Seeders: 10, Size: goodSize, PublishedAt: recent},
			wantScore: 100 + 50 + 20,
			wantConf:  ConfidenceHigh,
		},
		{
			name:      "no title match tanks score",
			game:      models.Game{Title: "Stardew Valley"},
			release:   prowlarr.Release{Title: "Completely Unrelated Game", Seeders: 10, Size: goodSize, PublishedAt: recent},
			wantScore: 100 - 60,
			wantConf:  ConfidenceLow,
		},
		{
			name:      "low seeders penalty",
			game:      models.Game{Title: "Hades"},
			release:   prowlarr.Release{Title: "Hades", Seeders: 2, Size: goodSize, PublishedAt: recent},
			wantScore: 100 + 50 - 30,
			wantConf:  ConfidenceMedium,
		},
		{
			name:      "old release penalty",
			game:      models.Game{Title: "Hades"},
			release:   prowlarr.Release{Title: "Hades", Seeders: 10, Size: goodSize, PublishedAt: now.Add(-3 * 365 * 24 * time.Hour)},
			wantScore: 100 + 50 - 20,
			wantConf:  ConfidenceMedium,
		},
		{
			name:      "tiny size penalty",
			game:      models.Game{Title: "Hades"},
			release:   prowlarr.Release{Title: "Hades", Seeders: 10, Size: 10 << 20, PublishedAt: recent},
			wantScore: 100 + 50 - 50,
			wantConf:  ConfidenceMedium,
		},
		{
			name:      "partial word match",
			game:      models.Game{Title: "The Elder Scrolls Skyrim"},
			release:   prowlarr.Release{Title: "Elder Scrolls Anthology", Seeders: 10, Size: goodSize, PublishedAt: recent},
			wantScore: 100 + 15, // 2 of 4 significant words (elder, scrolls)
			wantConf:  ConfidenceMedium,
		},
		{
			name:      "repack quality",
			game:      models.Game{Title: "Hades"},
			release:   prowlarr.Release{Title: "Hades Repack", Seeders: 10, Size: goodSize, PublishedAt: recent},
			wantScore: 100 + 50 + 20,
			wantConf:  ConfidenceHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scored := ScoreRelease(tt.release, &tt.game, now)
			if scored.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", scored.Score, tt.wantScore)
			}
			if scored.MatchConfidence != tt.wantConf {
				t.Errorf("MatchConfidence = %q, want %q", scored.MatchConfidence, tt.wantConf)
			}
		})
	}
}

func TestShouldAutoGrab(t *testing.T) {
	base := ScoredRelease{Score: 150, MatchConfidence: ConfidenceHigh}
	base.Seeders = 10

	if !ShouldAutoGrab(base, 100, 5) {
		t.Error("expected gate to pass")
	}

	low := base
	low.MatchConfidence = ConfidenceLow
	if ShouldAutoGrab(low, 100, 5) {
		t.Error("low confidence must never auto-grab")
	}

	// Monotonicity: lowering score or seeders cannot flip false to true.
	weak := base
	weak.Score = 99
	if ShouldAutoGrab(weak, 100, 5) {
		t.Error("score below threshold must not grab")
	}
	weak = base
	weak.Seeders = 4
	if ShouldAutoGrab(weak, 100, 5) {
		t.Error("seeders below threshold must not grab")
	}
}

func TestRankTieBreaks(t *testing.T) {
	now := time.Now()
	a := ScoredRelease{Score: 200}
	a.Seeders = 10
	a.PublishedAt = now.Add(-time.Hour)
	a.GUID = "a"

	b := ScoredRelease{Score: 200}
	b.Seeders = 50
	b.PublishedAt = now.Add(-time.Hour)
	b.GUID = "b"

	c := ScoredRelease{Score: 200}
	c.Seeders = 50
	c.PublishedAt = now
	c.GUID = "c"

	d := ScoredRelease{Score: 250}
	d.Seeders = 1
	d.GUID = "d"

	releases := []ScoredRelease{a, b, c, d}
	Rank(releases)

	want := []string{"d", "c", "b", "a"}
	for i, guid := range want {
		if releases[i].GUID != guid {
			t.Fatalf("rank[%d] = %s, want %s (order %v)", i, releases[i].GUID, guid, releases)
		}
	}
}

func TestFindBestMatch(t *testing.T) {
	now := time.Now()
	games := []*models.Game{
		{ID: 1, Title: "Hades"},
		{ID: 2, Title: "Hades II"},
		{ID: 3, Title: "Stardew Valley"},
	}
	release := prowlarr.Release{Title: "Hades II v1.0 [GOG]", Seeders: 30, Size: 8 << 30, PublishedAt: now}

	best, scored := FindBestMatch(release, games, now)
	if best == nil || best.ID != 2 {
		t.Fatalf("best = %+v, want game 2", best)
	}
	if scored.MatchConfidence == ConfidenceLow {
		t.Error("best match must not be low confidence")
	}

	noMatch := prowlarr.Release{Title: "Some Unrelated Thing", Seeders: 30, Size: 8 << 30, PublishedAt: now}
	if best, _ := FindBestMatch(noMatch, games, now); best != nil {
		t.Errorf("expected no match, got game %d", best.ID)
	}
}
