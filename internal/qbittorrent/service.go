// Package qbittorrent wraps the torrent daemon API behind the
// canonical torrent shape used by the download pipeline.
package qbittorrent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/settings"
)

const clientTimeoutSeconds = 30

// Service is the settings-aware daemon client. The underlying session
// is lazily authenticated and rebuilt when stored credentials change;
// go-qbittorrent re-authenticates internally on 401/403.
type Service struct {
	settings   *settings.Service
	logger     zerolog.Logger
	httpClient *http.Client

	mu         sync.Mutex
	client     *qbt.Client
	clientHost string
	clientUser string
	clientPass string
}

// NewService creates a settings-backed daemon service.
func NewService(settingsSvc *settings.Service, logger zerolog.Logger) *Service {
	return &Service{
		settings:   settingsSvc,
		logger:     logger.With().Str("component", "qbittorrent").Logger(),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// IsConfigured reports whether a daemon host is available.
func (s *Service) IsConfigured(ctx context.Context) bool {
	host, _ := s.settings.Get(ctx, settings.KeyQbitHost)
	return host != ""
}

// Configure stores daemon credentials and drops the cached session.
func (s *Service) Configure(ctx context.Context, host, username, password string) error {
	if host == "" {
		return apperr.Validation("qbittorrent host is required")
	}
	if err := s.settings.Set(ctx, settings.KeyQbitHost, host); err != nil {
		return err
	}
	if err := s.settings.Set(ctx, settings.KeyQbitUsername, username); err != nil {
		return err
	}
	if err := s.settings.Set(ctx, settings.KeyQbitPassword, password); err != nil {
		return err
	}
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) getClient(ctx context.Context) (*qbt.Client, error) {
	host, _ := s.settings.Get(ctx, settings.KeyQbitHost)
	if host == "" {
		return nil, apperr.NotConfigured("qbittorrent", "qbittorrent host is required")
	}
	host = sanitizeHostURL(host)
	user, _ := s.settings.Get(ctx, settings.KeyQbitUsername)
	pass, _ := s.settings.Get(ctx, settings.KeyQbitPassword)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.clientHost == host && s.clientUser == user && s.clientPass == pass {
		return s.client, nil
	}

	client := qbt.NewClient(qbt.Config{
		Host:     host,
		Username: user,
		Password: pass,
		Timeout:  clientTimeoutSeconds,
	})
	if err := client.LoginCtx(ctx); err != nil {
		return nil, apperr.Integration("qbittorrent", "login failed", err)
	}

	s.client = client
	s.clientHost = host
	s.clientUser = user
	s.clientPass = pass
	s.logger.Debug().Str("host", host).Msg("qbittorrent session established")
	return client, nil
}

// TestConnection verifies the stored credentials against the daemon.
func (s *Service) TestConnection(ctx context.Context) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	version, err := client.GetWebAPIVersionCtx(ctx)
	if err != nil {
		return apperr.Integration("qbittorrent", "connection test failed", err)
	}
	s.logger.Info().Str("webApiVersion", version).Msg("connection test successful")
	return nil
}

// AddTorrent sends a torrent to the daemon. Magnet URIs are passed
// through as form fields; plain URLs are downloaded here and uploaded
// as file bytes so indexer auth stays on our side.
func (s *Service) AddTorrent(ctx context.Context, downloadURL string, opts AddOptions) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	qbtOpts := map[string]string{}
	if opts.Category != "" {
		qbtOpts["category"] = opts.Category
	}
	if opts.Tags != "" {
		qbtOpts["tags"] = opts.Tags
	}
	if opts.SavePath != "" {
		qbtOpts["savepath"] = opts.SavePath
	}
	if opts.Paused {
		qbtOpts["paused"] = "true"
	}

	if IsMagnet(downloadURL) {
		if err := client.AddTorrentFromUrlCtx(ctx, downloadURL, qbtOpts); err != nil {
			return apperr.Integration("qbittorrent", "failed to add magnet", err)
		}
		return nil
	}

	data, err := s.fetchTorrentFile(ctx, downloadURL)
	if err != nil {
		return err
	}
	if err := client.AddTorrentFromMemoryCtx(ctx, data, qbtOpts); err != nil {
		return apperr.Integration("qbittorrent", "failed to add torrent", err)
	}
	return nil
}

func (s *Service) fetchTorrentFile(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid download URL: %v", err))
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Integration("qbittorrent", "failed to download torrent file", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Integration("qbittorrent",
			fmt.Sprintf("torrent file download returned status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, apperr.Integration("qbittorrent", "failed to read torrent file", err)
	}
	return data, nil
}

// Torrents lists daemon torrents, optionally filtered by category.
func (s *Service) Torrents(ctx context.Context, category string) ([]Torrent, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	opts := qbt.TorrentFilterOptions{}
	if category != "" {
		opts.Category = category
	}
	raw, err := client.GetTorrentsCtx(ctx, opts)
	if err != nil {
		return nil, apperr.Integration("qbittorrent", "failed to list torrents", err)
	}
	torrents := make([]Torrent, 0, len(raw))
	for _, t := range raw {
		torrents = append(torrents, fromQbt(t))
	}
	return torrents, nil
}

// Torrent returns a single torrent by hash, or nil when absent.
func (s *Service) Torrent(ctx context.Context, hash string) (*Torrent, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Hashes: []string{hash}})
	if err != nil {
		return nil, apperr.Integration("qbittorrent", "failed to get torrent", err)
	}
	for _, t := range raw {
		if strings.EqualFold(t.Hash, hash) {
			canonical := fromQbt(t)
			return &canonical, nil
		}
	}
	return nil, nil
}

// TorrentsByTag lists torrents carrying the given tag.
func (s *Service) TorrentsByTag(ctx context.Context, tag string) ([]Torrent, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Tag: tag})
	if err != nil {
		return nil, apperr.Integration("qbittorrent", "failed to list torrents by tag", err)
	}
	torrents := make([]Torrent, 0, len(raw))
	for _, t := range raw {
		torrents = append(torrents, fromQbt(t))
	}
	return torrents, nil
}

// PauseTorrents pauses the given hashes.
func (s *Service) PauseTorrents(ctx context.Context, hashes []string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.PauseCtx(ctx, hashes); err != nil {
		return apperr.Integration("qbittorrent", "failed to pause torrents", err)
	}
	return nil
}

// ResumeTorrents resumes the given hashes.
func (s *Service) ResumeTorrents(ctx context.Context, hashes []string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.ResumeCtx(ctx, hashes); err != nil {
		return apperr.Integration("qbittorrent", "failed to resume torrents", err)
	}
	return nil
}

// DeleteTorrents removes torrents, optionally deleting their data.
func (s *Service) DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DeleteTorrentsCtx(ctx, hashes, deleteFiles); err != nil {
		return apperr.Integration("qbittorrent", "failed to delete torrents", err)
	}
	return nil
}

// Categories returns the daemon's category names.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := client.GetCategoriesCtx(ctx)
	if err != nil {
		return nil, apperr.Integration("qbittorrent", "failed to list categories", err)
	}
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	return names, nil
}

// EnsureCategory creates the category if the daemon doesn't have it.
func (s *Service) EnsureCategory(ctx context.Context, name string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	categories, err := client.GetCategoriesCtx(ctx)
	if err != nil {
		return apperr.Integration("qbittorrent", "failed to list categories", err)
	}
	if _, ok := categories[name]; ok {
		return nil
	}
	if err := client.CreateCategoryCtx(ctx, name, ""); err != nil {
		return apperr.Integration("qbittorrent", "failed to create category", err)
	}
	s.logger.Info().Str("category", name).Msg("created daemon category")
	return nil
}

// AddTags attaches tags (CSV) to the given hashes.
func (s *Service) AddTags(ctx context.Context, hashes []string, tags string) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.AddTagsCtx(ctx, hashes, tags); err != nil {
		return apperr.Integration("qbittorrent", "failed to add tags", err)
	}
	return nil
}

// FindTorrentsByPath returns torrents whose save path or content path
// starts with prefix, case-insensitively and ignoring separator style.
func (s *Service) FindTorrentsByPath(ctx context.Context, prefix string) ([]Torrent, error) {
	torrents, err := s.Torrents(ctx, "")
	if err != nil {
		return nil, err
	}
	key := normalizePathKey(prefix)
	var matched []Torrent
	for _, t := range torrents {
		if strings.HasPrefix(normalizePathKey(t.SavePath), key) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}
