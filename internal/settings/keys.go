package settings

import "strings"

// Setting keys. Values are stored as raw strings or JSON in the
// settings table; typed accessors on Service decode them.
const (
	KeyProwlarrURL        = "prowlarr_url"
	KeyProwlarrAPIKey     = "prowlarr_api_key"
	KeyProwlarrCategories = "prowlarr_categories"

	KeyQbitHost     = "qbittorrent_host"
	KeyQbitUsername = "qbittorrent_username"
	KeyQbitPassword = "qbittorrent_password"
	KeyQbitCategory = "qbittorrent_category"

	KeyIGDBClientID     = "igdb_client_id"
	KeyIGDBClientSecret = "igdb_client_secret"

	KeyLibraryPath = "library_path"

	KeyRSSSyncInterval    = "rss_sync_interval"
	KeySearchInterval     = "search_scheduler_interval"
	KeyAutoGrabMinScore   = "auto_grab_min_score"
	KeyAutoGrabMinSeeders = "auto_grab_min_seeders"
	KeyDryRun             = "dry_run"
	KeyUpdateCheckEnabled = "update_check_enabled"
	KeyUpdateCheckSched   = "update_check_schedule"

	KeyTrustedProxies = "trusted_proxies"
)

// Defaults applied when a key is unset or out of range.
const (
	DefaultQbitCategory    = "gamearr"
	DefaultIntervalMinutes = 15
	MinIntervalMinutes     = 5
	MaxIntervalMinutes     = 1440
	DefaultMinScore        = 100
	MaxMinScore            = 500
	DefaultMinSeeders      = 5
	MaxMinSeeders          = 100
	DefaultUpdateSchedule  = "daily"
)

// DefaultCategories are the Torznab category ids searched when
// prowlarr_categories is unset: 4000 (PC) and 4050 (PC/Games).
func DefaultCategories() []int {
	return []int{4000, 4050}
}

// envFallbacks maps setting keys to the environment variables consulted
// when the database has no value. This table is closed: only bootstrap
// credentials may come from the environment.
var envFallbacks = map[string]string{
	KeyProwlarrURL:      "PROWLARR_URL",
	KeyProwlarrAPIKey:   "PROWLARR_API_KEY",
	KeyQbitHost:         "QBITTORRENT_HOST",
	KeyQbitUsername:     "QBITTORRENT_USERNAME",
	KeyQbitPassword:     "QBITTORRENT_PASSWORD",
	KeyIGDBClientID:     "IGDB_CLIENT_ID",
	KeyIGDBClientSecret: "IGDB_CLIENT_SECRET",
	KeyLibraryPath:      "LIBRARY_PATH",
}

// writableKeys is the allowlist for bulk writes through the settings
// API. Everything else is rejected or requires a dedicated endpoint.
var writableKeys = map[string]bool{
	KeyProwlarrURL:        true,
	KeyProwlarrAPIKey:     true,
	KeyQbitHost:           true,
	KeyQbitUsername:       true,
	KeyQbitPassword:       true,
	KeyQbitCategory:       true,
	KeyIGDBClientID:       true,
	KeyIGDBClientSecret:   true,
	KeyLibraryPath:        true,
	KeyRSSSyncInterval:    true,
	KeySearchInterval:     true,
	KeyAutoGrabMinScore:   true,
	KeyAutoGrabMinSeeders: true,
	KeyDryRun:             true,
	KeyUpdateCheckEnabled: true,
	KeyUpdateCheckSched:   true,
	KeyTrustedProxies:     true,
}

// protectedKeys are writable only through dedicated endpoints, never
// through the bulk settings API.
var protectedKeys = map[string]bool{
	"auth_enabled":        true,
	"api_key_hash":        true,
	"setup_skipped":       true,
	KeyProwlarrCategories: true,
}

// IsWritable reports whether the bulk settings API may set this key.
func IsWritable(key string) bool {
	return writableKeys[key] && !protectedKeys[key]
}

// IsProtected reports whether the key requires a dedicated endpoint.
func IsProtected(key string) bool {
	return protectedKeys[key]
}

// IsSensitive reports whether a key's value must be redacted in bulk
// reads, matched by substring.
func IsSensitive(key string) bool {
	return strings.Contains(key, "password") ||
		strings.Contains(key, "secret") ||
		strings.Contains(key, "api_key")
}

// Redact replaces a sensitive value with a placeholder, preserving
// emptiness so the UI can tell "unset" from "set".
func Redact(key, value string) string {
	if !IsSensitive(key) || value == "" {
		return value
	}
	return "********"
}
