package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// Quality tags in ascending rank order. Search is by case-insensitive
// substring in priority order and at most one tag is recorded.
const (
	QualityGOG     = "GOG"
	QualityDRMFree = "DRM-Free"
	QualityRepack  = "Repack"
	QualityScene   = "Scene"
)

// ExtractQuality returns the quality tag found in a release title and
// its score bonus, or ("", 0) when none matches.
func ExtractQuality(title string) (string, int) {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "gog"):
		return QualityGOG, 50
	case strings.Contains(lower, "drm-free"), strings.Contains(lower, "drm free"):
		return QualityDRMFree, 40
	case strings.Contains(lower, "repack"):
		return QualityRepack, 20
	case strings.Contains(lower, "scene"):
		return QualityScene, 10
	}
	return "", 0
}

// QualityRank orders quality tags: none < Scene < Repack < DRM-Free < GOG.
func QualityRank(quality string) int {
	switch quality {
	case QualityGOG:
		return 4
	case QualityDRMFree:
		return 3
	case QualityRepack:
		return 2
	case QualityScene:
		return 1
	}
	return 0
}

// versionPatterns is an ordered set; the first match wins. Each pattern
// captures the numeric version in group 1.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bv(\d+\.\d+\.\d+(?:\.\d+)*)\b`),
	regexp.MustCompile(`(?i)\bv(\d+\.\d+)\b`),
	regexp.MustCompile(`(?i)\bversion\s+(\d+(?:\.\d+)*)\b`),
	regexp.MustCompile(`\b(\d+\.\d+\.\d+(?:\.\d+)*)\b`),
	regexp.MustCompile(`(?i)\bbuild\s+(\d+)\b`),
	regexp.MustCompile(`(?i)\bupdate\s+(\d+(?:\.\d+)*)\b`),
	regexp.MustCompile(`(?i)\bu(\d+)\b`),
	regexp.MustCompile(`(?i)\br(\d+)\b`),
	regexp.MustCompile(`(?i)\bpatch\s+(\d+(?:\.\d+)*)\b`),
}

// ParseVersion extracts a version string from a release title, or ""
// when none is present.
func ParseVersion(title string) string {
	for _, pattern := range versionPatterns {
		if m := pattern.FindStringSubmatch(title); m != nil {
			return m[1]
		}
	}
	return ""
}

// StripVersion removes the first version pattern occurrence from a
// title, used when normalizing folder names back to game titles.
func StripVersion(title string) string {
	for _, pattern := range versionPatterns {
		if loc := pattern.FindStringIndex(title); loc != nil {
			return strings.TrimSpace(title[:loc[0]] + title[loc[1]:])
		}
	}
	return title
}

// CompareVersions compares dotted numeric versions: split on ".", parse
// segments as integers, zero-pad the shorter tuple, compare
// lexicographically. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}
