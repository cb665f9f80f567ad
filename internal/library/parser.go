// Package library scans configured library roots and matches the game
// folders found there against the catalog.
package library

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gamearr/gamearr/internal/scoring"
)

// ParsedFolder is the result of parsing one game folder name.
type ParsedFolder struct {
	Title string
	Year  int
}

// sceneTagPatterns strip release-group and packaging markers from
// folder names. Order matters: suffixed group tags first, then the
// bracketed forms.
var sceneTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)-CODEX\b`),
	regexp.MustCompile(`(?i)-PLAZA\b`),
	regexp.MustCompile(`(?i)-SKIDROW\b`),
	regexp.MustCompile(`(?i)-RELOADED\b`),
	regexp.MustCompile(`(?i)-FitGirl\b`),
	regexp.MustCompile(`(?i)-DODI\b`),
	regexp.MustCompile(`(?i)-ElAmigos\b`),
	regexp.MustCompile(`(?i)-GOG\b`),
	regexp.MustCompile(`(?i)-DARKSiDERS\b`),
	regexp.MustCompile(`(?i)-EMPRESS\b`),
	regexp.MustCompile(`(?i)-Razor1911\b`),
	regexp.MustCompile(`(?i)-RUNE\b`),
	regexp.MustCompile(`(?i)-TiNYiSO\b`),
	regexp.MustCompile(`(?i)-HOODLUM\b`),
	regexp.MustCompile(`(?i)\[GOG\]`),
	regexp.MustCompile(`(?i)\[REPACK\]`),
	regexp.MustCompile(`(?i)\[MULTI\d+\]`),
	regexp.MustCompile(`(?i)\[R\.G\.[^\]]*\]`),
}

var trailingYearRe = regexp.MustCompile(`\((\d{4})\)\s*$`)

// ParseFolderName extracts a clean title and optional year from a game
// folder name like "Hades.v1.38.22-GOG (2020)".
func ParseFolderName(name string) ParsedFolder {
	cleaned := name
	for _, re := range sceneTagPatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = scoring.StripVersion(cleaned)

	var year int
	if m := trailingYearRe.FindStringSubmatch(strings.TrimSpace(cleaned)); m != nil {
		year, _ = strconv.Atoi(m[1])
		cleaned = trailingYearRe.ReplaceAllString(strings.TrimSpace(cleaned), "")
	}

	cleaned = strings.NewReplacer(".", " ", "_", " ").Replace(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	return ParsedFolder{Title: cleaned, Year: year}
}
