package prowlarr

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/settings"
)

// Service is the settings-aware front for the aggregator. It rebuilds
// the underlying client whenever the stored URL or API key changes, so
// credential edits take effect without a restart.
type Service struct {
	settings *settings.Service
	logger   zerolog.Logger

	mu         sync.Mutex
	client     *Client
	clientURL  string
	clientKey  string
}

// NewService creates a settings-backed aggregator service.
func NewService(settingsSvc *settings.Service, logger zerolog.Logger) *Service {
	return &Service{
		settings: settingsSvc,
		logger:   logger.With().Str("component", "prowlarr").Logger(),
	}
}

// IsConfigured reports whether both URL and API key are available.
func (s *Service) IsConfigured(ctx context.Context) bool {
	url, _ := s.settings.Get(ctx, settings.KeyProwlarrURL)
	key, _ := s.settings.Get(ctx, settings.KeyProwlarrAPIKey)
	return url != "" && key != ""
}

func (s *Service) getClient(ctx context.Context) (*Client, error) {
	url, _ := s.settings.Get(ctx, settings.KeyProwlarrURL)
	key, _ := s.settings.Get(ctx, settings.KeyProwlarrAPIKey)
	if url == "" || key == "" {
		return nil, apperr.NotConfigured("prowlarr", "prowlarr URL and API key are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.clientURL == url && s.clientKey == key {
		return s.client, nil
	}

	client, err := NewClient(ClientConfig{URL: url, APIKey: key, Logger: s.logger})
	if err != nil {
		return nil, apperr.Integration("prowlarr", "failed to create client", err)
	}
	s.client = client
	s.clientURL = url
	s.clientKey = key
	return client, nil
}

// Search runs a category-filtered free-text search. Categories default
// to the configured list when nil.
func (s *Service) Search(ctx context.Context, query string, categories []int, limit int) ([]Release, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = s.settings.SearchCategories(ctx)
	}
	releases, err := client.Search(ctx, query, categories, limit)
	if err != nil {
		return nil, apperr.Integration("prowlarr", "search failed", err)
	}
	return releases, nil
}

// RSS fetches the recent-releases feed across all indexers.
func (s *Service) RSS(ctx context.Context, categories []int, limit int) ([]Release, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = s.settings.SearchCategories(ctx)
	}
	releases, err := client.RSS(ctx, categories, limit)
	if err != nil {
		return nil, apperr.Integration("prowlarr", "rss fetch failed", err)
	}
	return releases, nil
}

// TestConnection verifies the stored credentials against the server.
func (s *Service) TestConnection(ctx context.Context) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.TestConnection(ctx); err != nil {
		return apperr.Integration("prowlarr", "connection test failed", err)
	}
	return nil
}
