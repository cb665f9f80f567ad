// Package settings provides the persisted key/value configuration
// store with a short-lived read cache and environment fallbacks for
// bootstrap credentials.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/database"
)

const cacheTTL = 60 * time.Second

type cacheEntry struct {
	value     string
	found     bool
	fetchedAt time.Time
}

// Service reads and writes settings. Reads are served from a TTL cache
// so hot paths (every scheduler tick consults intervals and thresholds)
// don't hammer the single-writer database.
type Service struct {
	repo   *database.SettingRepo
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry

	// now is replaceable in tests to force cache expiry.
	now func() time.Time
}

// NewService creates a settings service backed by the given repository.
func NewService(repo *database.SettingRepo, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "settings").Logger(),
		cache:  make(map[string]cacheEntry),
		now:    time.Now,
	}
}

// Get returns the value for a key, consulting (in order) the cache, the
// database, and the closed environment-fallback table. The second
// return is false when the key is unset everywhere.
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.fetchedAt) < cacheTTL {
		if entry.found {
			return entry.value, true
		}
		return s.envFallback(key)
	}

	value, err := s.repo.Get(ctx, key)
	switch {
	case err == nil:
		s.store(key, value, true)
		return value, true
	case errors.Is(err, database.ErrSettingNotFound):
		s.store(key, "", false)
		return s.envFallback(key)
	default:
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to read setting")
		return s.envFallback(key)
	}
}

// GetFromDB returns the stored value only, bypassing cache and
// environment fallbacks. Used where the distinction between "configured
// in the app" and "inherited from the environment" matters.
func (s *Service) GetFromDB(ctx context.Context, key string) (string, error) {
	return s.repo.Get(ctx, key)
}

// Set upserts a value and invalidates the cache entry.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.invalidate(key)
	return nil
}

// Delete removes a key and invalidates the cache entry.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(key)
	return nil
}

// All returns every stored key/value pair with sensitive values
// redacted. Environment fallbacks are not included.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	for key, value := range stored {
		stored[key] = Redact(key, value)
	}
	return stored, nil
}

func (s *Service) store(key, value string, found bool) {
	s.mu.Lock()
	s.cache[key] = cacheEntry{value: value, found: found, fetchedAt: s.now()}
	s.mu.Unlock()
}

func (s *Service) invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}

func (s *Service) envFallback(key string) (string, bool) {
	envVar, ok := envFallbacks[key]
	if !ok {
		return "", false
	}
	value := os.Getenv(envVar)
	return value, value != ""
}

// --- typed accessors ---

// GetBool returns a boolean setting, falling back to def when unset or
// unparseable.
func (s *Service) GetBool(ctx context.Context, key string, def bool) bool {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}

// GetInt returns an integer setting clamped to [min, max], falling back
// to def when unset or unparseable.
func (s *Service) GetInt(ctx context.Context, key string, def, min, max int) int {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if parsed < min {
		return min
	}
	if parsed > max {
		return max
	}
	return parsed
}

// DryRun reports whether grabs are simulated. Defaults to true so a
// fresh install never sends a torrent to the daemon unasked.
func (s *Service) DryRun(ctx context.Context) bool {
	return s.GetBool(ctx, KeyDryRun, true)
}

// MinScore returns the auto-grab score threshold.
func (s *Service) MinScore(ctx context.Context) int {
	return s.GetInt(ctx, KeyAutoGrabMinScore, DefaultMinScore, 0, MaxMinScore)
}

// MinSeeders returns the auto-grab seeder threshold.
func (s *Service) MinSeeders(ctx context.Context) int {
	return s.GetInt(ctx, KeyAutoGrabMinSeeders, DefaultMinSeeders, 0, MaxMinSeeders)
}

// SearchInterval returns the wanted-search scheduler interval.
func (s *Service) SearchInterval(ctx context.Context) time.Duration {
	minutes := s.GetInt(ctx, KeySearchInterval, DefaultIntervalMinutes, MinIntervalMinutes, MaxIntervalMinutes)
	return time.Duration(minutes) * time.Minute
}

// RSSSyncInterval returns the RSS sync scheduler interval.
func (s *Service) RSSSyncInterval(ctx context.Context) time.Duration {
	minutes := s.GetInt(ctx, KeyRSSSyncInterval, DefaultIntervalMinutes, MinIntervalMinutes, MaxIntervalMinutes)
	return time.Duration(minutes) * time.Minute
}

// UpdateCheckEnabled reports whether the background update sweep runs.
func (s *Service) UpdateCheckEnabled(ctx context.Context) bool {
	return s.GetBool(ctx, KeyUpdateCheckEnabled, true)
}

// UpdateCheckSchedule returns hourly, daily or weekly, defaulting to
// daily for unknown values.
func (s *Service) UpdateCheckSchedule(ctx context.Context) string {
	raw, ok := s.Get(ctx, KeyUpdateCheckSched)
	if !ok {
		return DefaultUpdateSchedule
	}
	switch raw {
	case "hourly", "daily", "weekly":
		return raw
	}
	return DefaultUpdateSchedule
}

// SearchCategories returns the Torznab category filter applied to all
// indexer calls, stored as a JSON integer array.
func (s *Service) SearchCategories(ctx context.Context) []int {
	raw, ok := s.Get(ctx, KeyProwlarrCategories)
	if !ok || raw == "" {
		return DefaultCategories()
	}
	var categories []int
	if err := json.Unmarshal([]byte(raw), &categories); err != nil || len(categories) == 0 {
		s.logger.Warn().Str("value", raw).Msg("Invalid prowlarr_categories, using defaults")
		return DefaultCategories()
	}
	return categories
}

// QbitCategory returns the torrent category used for adds and filtering.
func (s *Service) QbitCategory(ctx context.Context) string {
	raw, ok := s.Get(ctx, KeyQbitCategory)
	if !ok || raw == "" {
		return DefaultQbitCategory
	}
	return raw
}
