// Package igdb is a minimal IGDB metadata client used by the add-game
// flow: title search returning external id, title, year, cover and
// platform. Authentication uses Twitch client credentials; the token is
// cached until shortly before expiry.
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/settings"
)

const (
	tokenURL = "https://id.twitch.tv/oauth2/token"
	apiURL   = "https://api.igdb.com/v4"

	// tokenSlack renews the token well before Twitch expires it.
	tokenSlack = 5 * time.Minute
)

// GameResult is one metadata search hit.
type GameResult struct {
	IgdbID   int64  `json:"igdbId"`
	Title    string `json:"title"`
	Year     int    `json:"year,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// Service talks to IGDB using credentials from settings.
type Service struct {
	settings   *settings.Service
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger

	// Overridden in tests.
	tokenURL string
	apiURL   string

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
	tokenFor     string
}

// NewService creates the metadata client. IGDB allows 4 requests per
// second per client id.
func NewService(settingsSvc *settings.Service, logger zerolog.Logger) *Service {
	return &Service{
		settings:   settingsSvc,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(4), 4),
		logger:     logger.With().Str("component", "igdb").Logger(),
		tokenURL:   tokenURL,
		apiURL:     apiURL,
	}
}

// IsConfigured reports whether Twitch credentials are present.
func (s *Service) IsConfigured(ctx context.Context) bool {
	_, idOK := s.settings.Get(ctx, settings.KeyIGDBClientID)
	_, secretOK := s.settings.Get(ctx, settings.KeyIGDBClientSecret)
	return idOK && secretOK
}

// SearchGames runs a title search against IGDB.
func (s *Service) SearchGames(ctx context.Context, query string) ([]GameResult, error) {
	body := fmt.Sprintf(
		"search %q; fields name, first_release_date, cover.url, platforms.name; limit 20;",
		query)

	var raw []struct {
		ID               int64  `json:"id"`
		Name             string `json:"name"`
		FirstReleaseDate int64  `json:"first_release_date"`
		Cover            *struct {
			URL string `json:"url"`
		} `json:"cover"`
		Platforms []struct {
			Name string `json:"name"`
		} `json:"platforms"`
	}
	if err := s.post(ctx, "/games", body, &raw); err != nil {
		return nil, err
	}

	results := make([]GameResult, 0, len(raw))
	for _, hit := range raw {
		result := GameResult{IgdbID: hit.ID, Title: hit.Name}
		if hit.FirstReleaseDate > 0 {
			result.Year = time.Unix(hit.FirstReleaseDate, 0).UTC().Year()
		}
		if hit.Cover != nil {
			result.CoverURL = normalizeCoverURL(hit.Cover.URL)
		}
		if len(hit.Platforms) > 0 {
			result.Platform = hit.Platforms[0].Name
		}
		results = append(results, result)
	}
	return results, nil
}

// normalizeCoverURL upgrades IGDB's protocol-relative thumbnail URL to
// an https cover-size image.
func normalizeCoverURL(u string) string {
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return strings.Replace(u, "t_thumb", "t_cover_big", 1)
}

func (s *Service) post(ctx context.Context, path, body string, out any) error {
	clientID, token, err := s.credentials(ctx)
	if err != nil {
		return err
	}

	return retry.Do(
		func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, strings.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Client-ID", clientID)
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Accept", "application/json")

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return apperr.Integration("igdb", "request failed", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized {
				// Token revoked before its expiry; force a refresh.
				s.dropToken()
				return apperr.Integration("igdb", "token rejected", nil)
			}
			if resp.StatusCode != http.StatusOK {
				payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
				err := apperr.Integration("igdb", fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, payload), nil)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(err)
				}
				return err
			}

			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Attempts(3),
		retry.Context(ctx),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// credentials returns the client id and a valid bearer token,
// requesting a new token when the cached one expired or the client id
// changed.
func (s *Service) credentials(ctx context.Context) (string, string, error) {
	clientID, ok := s.settings.Get(ctx, settings.KeyIGDBClientID)
	if !ok {
		return "", "", apperr.NotConfigured("igdb", "client id not set")
	}
	clientSecret, ok := s.settings.Get(ctx, settings.KeyIGDBClientSecret)
	if !ok {
		return "", "", apperr.NotConfigured("igdb", "client secret not set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.tokenFor == clientID && time.Now().Before(s.tokenExpires) {
		return clientID, s.token, nil
	}

	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", apperr.Integration("igdb", "token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", "", apperr.Integration("igdb", fmt.Sprintf("token request returned %d: %s", resp.StatusCode, payload), nil)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", "", apperr.Integration("igdb", "decode token response", err)
	}

	s.token = tokenResp.AccessToken
	s.tokenFor = clientID
	s.tokenExpires = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenSlack)
	s.logger.Debug().Time("expires", s.tokenExpires).Msg("Obtained IGDB token")

	return clientID, s.token, nil
}

func (s *Service) dropToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
