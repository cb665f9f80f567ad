// Package api exposes the HTTP surface: catalog CRUD, manual search
// and grab, settings, downloads, updates and library scans.
package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/gamearr/gamearr/internal/autosearch"
	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/download"
	"github.com/gamearr/gamearr/internal/igdb"
	"github.com/gamearr/gamearr/internal/library"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/qbittorrent"
	"github.com/gamearr/gamearr/internal/scheduler"
	"github.com/gamearr/gamearr/internal/settings"
	"github.com/gamearr/gamearr/internal/updates"
)

// Server handles HTTP requests for the gamearr API.
type Server struct {
	echo   *echo.Echo
	logger zerolog.Logger

	repos      *database.Repos
	settings   *settings.Service
	prowlarr   *prowlarr.Service
	qbit       *qbittorrent.Service
	igdb       *igdb.Service
	downloads  *download.Service
	searcher   *autosearch.Service
	detector   *updates.Detector
	updatesJob *updates.Job
	library    *library.Service
	sched      *scheduler.Scheduler
}

// Deps bundles the services the server exposes.
type Deps struct {
	Repos      *database.Repos
	Settings   *settings.Service
	Prowlarr   *prowlarr.Service
	Qbit       *qbittorrent.Service
	IGDB       *igdb.Service
	Downloads  *download.Service
	Searcher   *autosearch.Service
	Detector   *updates.Detector
	UpdatesJob *updates.Job
	Library    *library.Service
	Scheduler  *scheduler.Scheduler
}

// NewServer creates the API server.
func NewServer(deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		logger:     logger.With().Str("component", "api").Logger(),
		repos:      deps.Repos,
		settings:   deps.Settings,
		prowlarr:   deps.Prowlarr,
		qbit:       deps.Qbit,
		igdb:       deps.IGDB,
		downloads:  deps.Downloads,
		searcher:   deps.Searcher,
		detector:   deps.Detector,
		updatesJob: deps.UpdatesJob,
		library:    deps.Library,
		sched:      deps.Scheduler,
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.applyTrustedProxies()
	return s
}

// applyTrustedProxies configures client-IP extraction from the
// trusted_proxies setting (CSV of IPv4 addresses / CIDR ranges). With
// none configured the remote address is used directly.
func (s *Server) applyTrustedProxies() {
	raw, ok := s.settings.Get(context.Background(), settings.KeyTrustedProxies)
	if !ok || strings.TrimSpace(raw) == "" {
		s.echo.IPExtractor = echo.ExtractIPDirect()
		return
	}

	var ranges []echo.TrustOption
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			entry += "/32"
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			s.logger.Warn().Str("entry", entry).Msg("Ignoring invalid trusted proxy entry")
			continue
		}
		ranges = append(ranges, echo.TrustIPRange(network))
	}
	s.echo.IPExtractor = echo.ExtractIPFromXFFHeader(ranges...)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
