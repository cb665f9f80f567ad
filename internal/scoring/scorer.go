// Package scoring implements deterministic release scoring against a
// wanted game, the auto-grab gate, and ranking.
package scoring

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/prowlarr"
)

// Match confidence levels. Low confidence disqualifies a release from
// auto-grab regardless of score.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	baseScore = 100

	substringBonus   = 50
	wordHitHighBonus = 30
	wordHitMidBonus  = 15
	wordMissPenalty  = 60

	yearBonus = 20

	lowSeederPenalty = 30
	highSeederBonus  = 10
	lowSeederCutoff  = 5
	highSeederCutoff = 20

	oldAgePenalty = 20
	maxAgeYears   = 2

	sizePenalty = 50
	minSizeGB   = 0.1
	maxSizeGB   = 200

	highConfidenceScore = 150
	lowConfidenceScore  = 80
)

// ScoredRelease is a candidate annotated with its desirability against
// a specific game.
type ScoredRelease struct {
	prowlarr.Release
	Quality         string `json:"quality,omitempty"`
	Score           int    `json:"score"`
	MatchConfidence string `json:"matchConfidence"`
}

// Normalize lowercases, strips apostrophes, replaces non-alphanumeric
// runs with single spaces, and collapses whitespace. Both titles are
// normalized before comparison so punctuation differences don't matter.
func Normalize(title string) string {
	lower := strings.ToLower(title)
	lower = strings.ReplaceAll(lower, "'", "")
	lower = strings.ReplaceAll(lower, "’", "")

	var b strings.Builder
	b.Grow(len(lower))
	lastSpace := true
	for _, r := range lower {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ScoreRelease scores a candidate against a game. Pure given now: the
// same inputs always produce the same output.
func ScoreRelease(release prowlarr.Release, game *models.Game, now time.Time) ScoredRelease {
	scored := ScoredRelease{
		Release:         release,
		Score:           baseScore,
		MatchConfidence: ConfidenceMedium,
	}

	gameTitle := Normalize(game.Title)
	releaseTitle := Normalize(release.Title)

	if gameTitle != "" && strings.Contains(releaseTitle, gameTitle) {
		scored.Score += substringBonus
		scored.MatchConfidence = ConfidenceHigh
	} else {
		words := significantWords(gameTitle)
		ratio := wordHitRatio(words, releaseTitle)
		switch {
		case ratio >= 0.8:
			scored.Score += wordHitHighBonus
			scored.MatchConfidence = ConfidenceHigh
		case ratio >= 0.5:
			scored.Score += wordHitMidBonus
		default:
			scored.Score -= wordMissPenalty
			scored.MatchConfidence = ConfidenceLow
		}
	}

	if game.Year > 0 && strings.Contains(release.Title, strconv.Itoa(game.Year)) {
		scored.Score += yearBonus
	}

	if quality, bonus := ExtractQuality(release.Title); quality != "" {
		scored.Quality = quality
		scored.Score += bonus
	}

	if release.Seeders < lowSeederCutoff {
		scored.Score -= lowSeederPenalty
	} else if release.Seeders >= highSeederCutoff {
		scored.Score += highSeederBonus
	}

	if !release.PublishedAt.IsZero() && now.Sub(release.PublishedAt) > maxAgeYears*365*24*time.Hour {
		scored.Score -= oldAgePenalty
	}

	sizeGB := float64(release.Size) / (1024 * 1024 * 1024)
	if sizeGB < minSizeGB || sizeGB > maxSizeGB {
		scored.Score -= sizePenalty
	}

	if scored.Score >= highConfidenceScore {
		scored.MatchConfidence = ConfidenceHigh
	} else if scored.Score < lowConfidenceScore {
		scored.MatchConfidence = ConfidenceLow
	}

	return scored
}

// significantWords returns normalized-title words longer than 2 runes.
func significantWords(normalizedTitle string) []string {
	var words []string
	for _, w := range strings.Fields(normalizedTitle) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func wordHitRatio(words []string, releaseTitle string) float64 {
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(releaseTitle, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}

// ShouldAutoGrab reports whether a scored release passes the automated
// grab gate. Monotone in score and seeders.
func ShouldAutoGrab(scored ScoredRelease, minScore, minSeeders int) bool {
	return scored.Score >= minScore &&
		scored.Seeders >= minSeeders &&
		scored.MatchConfidence != ConfidenceLow
}

// Rank sorts in place: descending score, then descending seeders, then
// newer publish date.
func Rank(releases []ScoredRelease) {
	sort.SliceStable(releases, func(i, j int) bool {
		if releases[i].Score != releases[j].Score {
			return releases[i].Score > releases[j].Score
		}
		if releases[i].Seeders != releases[j].Seeders {
			return releases[i].Seeders > releases[j].Seeders
		}
		return releases[i].PublishedAt.After(releases[j].PublishedAt)
	})
}

// FindBestMatch scores a release against every game and returns the
// highest-scoring game whose match confidence is not low, or nil when
// none qualifies.
func FindBestMatch(release prowlarr.Release, games []*models.Game, now time.Time) (*models.Game, ScoredRelease) {
	var best *models.Game
	var bestScored ScoredRelease
	for _, game := range games {
		scored := ScoreRelease(release, game, now)
		if scored.MatchConfidence == ConfidenceLow {
			continue
		}
		if best == nil || scored.Score > bestScored.Score {
			best = game
			bestScored = scored
		}
	}
	return best, bestScored
}
