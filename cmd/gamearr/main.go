package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamearr/gamearr/internal/api"
	"github.com/gamearr/gamearr/internal/autosearch"
	"github.com/gamearr/gamearr/internal/config"
	"github.com/gamearr/gamearr/internal/database"
	"github.com/gamearr/gamearr/internal/download"
	"github.com/gamearr/gamearr/internal/igdb"
	"github.com/gamearr/gamearr/internal/library"
	"github.com/gamearr/gamearr/internal/logger"
	"github.com/gamearr/gamearr/internal/monitor"
	"github.com/gamearr/gamearr/internal/organizer"
	"github.com/gamearr/gamearr/internal/prowlarr"
	"github.com/gamearr/gamearr/internal/qbittorrent"
	"github.com/gamearr/gamearr/internal/rsssync"
	"github.com/gamearr/gamearr/internal/scheduler"
	"github.com/gamearr/gamearr/internal/scheduler/tasks"
	"github.com/gamearr/gamearr/internal/settings"
	"github.com/gamearr/gamearr/internal/startup"
	"github.com/gamearr/gamearr/internal/updates"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "gamearr: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().Str("database", cfg.Database.Path).Msg("Starting gamearr")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if version, err := db.SchemaVersion(); err == nil {
		log.Info().Int64("schemaVersion", version).Msg("Database ready")
	}

	repos := database.NewRepos(db.Conn())

	settingsSvc := settings.NewService(repos.Settings, log.Logger)
	prowlarrSvc := prowlarr.NewService(settingsSvc, log.Logger)
	qbitSvc := qbittorrent.NewService(settingsSvc, log.Logger)
	igdbSvc := igdb.NewService(settingsSvc, log.Logger)
	organizerSvc := organizer.NewService(repos.Libraries, repos.Games, settingsSvc, log.Logger)
	downloadSvc := download.NewService(repos.Games, repos.Releases, repos.History, qbitSvc, organizerSvc, settingsSvc, log.Logger)
	searchWorker := autosearch.NewService(repos.Games, prowlarrSvc, downloadSvc, settingsSvc, log.Logger)
	rssWorker := rsssync.NewService(repos.Games, prowlarrSvc, downloadSvc, settingsSvc, log.Logger)
	detector := updates.NewDetector(repos.Games, repos.Updates, prowlarrSvc, log.Logger)
	sweepJob := updates.NewJob(repos.Games, detector, log.Logger)
	downloadMonitor := monitor.New(downloadSvc, log.Logger)
	librarySvc := library.NewService(repos.Games, repos.Libraries, repos.LibraryFiles, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Probe the daemon and pre-create our category off the main path.
	go func() {
		if !qbitSvc.IsConfigured(ctx) {
			return
		}
		probe := log.WithComponent("startup")
		err := startup.WithRetry(ctx, "qbittorrent-probe", startup.DefaultRetryConfig(), func() error {
			if err := qbitSvc.TestConnection(ctx); err != nil {
				return err
			}
			return qbitSvc.EnsureCategory(ctx, settingsSvc.QbitCategory(ctx))
		}, probe)
		if err != nil {
			probe.Warn().Err(err).Msg("Torrent daemon unreachable at boot, the monitor will keep trying")
		}
	}()

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if err := tasks.RegisterSearchTask(sched, searchWorker); err != nil {
		return fmt.Errorf("register search task: %w", err)
	}
	if err := tasks.RegisterRSSSyncTask(sched, rssWorker); err != nil {
		return fmt.Errorf("register rss task: %w", err)
	}
	if err := tasks.RegisterMonitorTask(sched, downloadMonitor); err != nil {
		return fmt.Errorf("register monitor task: %w", err)
	}
	if err := tasks.RegisterUpdateCheckTask(sched, sweepJob, settingsSvc); err != nil {
		return fmt.Errorf("register update check task: %w", err)
	}

	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
	}()

	server := api.NewServer(api.Deps{
		Repos:      repos,
		Settings:   settingsSvc,
		Prowlarr:   prowlarrSvc,
		Qbit:       qbitSvc,
		IGDB:       igdbSvc,
		Downloads:  downloadSvc,
		Searcher:   searchWorker,
		Detector:   detector,
		UpdatesJob: sweepJob,
		Library:    librarySvc,
		Scheduler:  sched,
	}, log.Logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Address())
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}

	return nil
}
