// Package prowlarr provides the indexer aggregator client: category
// filtered search and the global RSS feed that drive automation.
package prowlarr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 90 * time.Second
	apiKeyHeader   = "X-Api-Key"

	// One request per second with a small burst keeps us well under the
	// aggregator's limits even when search and RSS ticks coincide.
	requestsPerSecond = 1
	requestBurst      = 3
)

// Client provides HTTP communication with a Prowlarr server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// ClientConfig contains configuration for creating a client.
type ClientConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewClient creates a Prowlarr HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:     cfg.Logger.With().Str("component", "prowlarr-client").Str("url", baseURL).Logger(),
	}, nil
}

// doJSON executes a GET with the API key header and decodes the JSON
// response. Transient failures (network errors, 429, 5xx) are retried
// with backoff.
func (c *Client) doJSON(ctx context.Context, path string, result any) error {
	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			req.Header.Set(apiKeyHeader, c.apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests {
				c.logger.Warn().Str("path", path).Msg("rate limited by prowlarr")
				return ErrRateLimited
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
				if resp.StatusCode >= 500 {
					return statusErr
				}
				return retry.Unrecoverable(statusErr)
			}

			if result != nil {
				if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// TestConnection verifies connectivity by fetching system status.
func (c *Client) TestConnection(ctx context.Context) error {
	var status struct {
		Version string `json:"version"`
	}
	if err := c.doJSON(ctx, "/api/v1/system/status", &status); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	c.logger.Info().Str("version", status.Version).Msg("connection test successful")
	return nil
}

// Search executes a category-filtered free-text search.
func (c *Client) Search(ctx context.Context, query string, categories []int, limit int) ([]Release, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "search")
	for _, cat := range categories {
		params.Add("categories", strconv.Itoa(cat))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/search?" + params.Encode()

	c.logger.Debug().Str("query", query).Ints("categories", categories).Msg("executing search")

	var results []searchResult
	if err := c.doJSON(ctx, path, &results); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	releases := make([]Release, 0, len(results))
	for i := range results {
		releases = append(releases, results[i].toRelease())
	}

	c.logger.Debug().Int("results", len(releases)).Msg("search completed")
	return releases, nil
}

// RSS fetches the most recent releases across all indexers. The
// aggregator treats an empty query as a recent-releases feed.
func (c *Client) RSS(ctx context.Context, categories []int, limit int) ([]Release, error) {
	return c.Search(ctx, "", categories, limit)
}
