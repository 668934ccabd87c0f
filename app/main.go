package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/lysyi3m/rss-radio/app/api"
	"github.com/lysyi3m/rss-radio/app/apperr"
	"github.com/lysyi3m/rss-radio/app/cfg"
	"github.com/lysyi3m/rss-radio/app/database"
	"github.com/lysyi3m/rss-radio/app/events"
	"github.com/lysyi3m/rss-radio/app/feed"
	"github.com/lysyi3m/rss-radio/app/radio"
	"github.com/lysyi3m/rss-radio/app/speech"
	"github.com/lysyi3m/rss-radio/app/storage"
	"github.com/lysyi3m/rss-radio/app/tasks"
	"github.com/lysyi3m/rss-radio/app/transcript"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg); err != nil {
		slog.Error("RSS Radio stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg *cfg.Cfg) error {
	slog.Info("Starting RSS Radio", "version", appCfg.Version)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	lock := flock.New(appCfg.DBPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is using %s", appCfg.DBPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release instance lock", "error", err)
		}
	}()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	stationRepo := database.NewStationRepository(db)
	articleRepo := database.NewArticleRepository(db)
	credentialRepo := database.NewCredentialRepository(db)

	catalog := feed.NewCatalog(appCfg.CatalogDir)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	slog.Info("Catalog loaded", "dir", appCfg.CatalogDir, "entries", catalog.GetCount())

	bucket := storage.NewBucket(appCfg.StorageDir, appCfg.AudioBucket, appCfg.PublicBaseURL())
	if err := bucket.EnsureBucket(ctx); err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: appCfg.Timeout()}

	fetcher := feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent)
	extractor := feed.NewContentExtractor(feed.DefaultStrategies(appCfg.Extractor == "readability")...)

	gemini := transcript.NewGeminiClient(httpClient, appCfg.GeminiModel, appCfg.GeminiBaseUrl)
	transcripts := transcript.NewGenerator(articleRepo, credentialRepo, gemini, fetcher, extractor, appCfg.Timeout())

	defaults := speech.VoiceSelection{VoiceID: appCfg.VoiceID, ModelID: appCfg.ModelID}
	elevenLabs := speech.NewElevenLabsClient(httpClient, appCfg.ElevenLabsBaseUrl, rate.NewLimiter(rate.Every(time.Second), 2))
	synthesizer := speech.NewSynthesizer(articleRepo, credentialRepo, elevenLabs, bucket, defaults, appCfg.Timeout())

	hub := events.NewHub(events.StreamPlayer, events.StreamRadio)
	queue := radio.NewQueue(articleRepo, hub)
	orchestrator := radio.NewOrchestrator(articleRepo, transcripts, synthesizer, queue, hub)

	scheduler := tasks.NewScheduler(fetcher, feedRepo, articleRepo, appCfg.OwnerID, tasks.SchedulerOptions{
		WorkerCount:     appCfg.WorkerCount,
		Interval:        time.Duration(appCfg.SchedulerInterval) * time.Second,
		RefreshInterval: time.Duration(appCfg.RefreshInterval) * time.Second,
	})

	handler := api.NewHandler(api.Services{
		Feeds:       feedRepo,
		Stations:    stationRepo,
		Articles:    articleRepo,
		Credentials: credentialRepo,
		Source:      fetcher,
		Generator:   feed.NewGenerator(bucket),
		Catalog:     catalog,
		Storage:     bucket,
		Transcripts: transcripts,
		Audio:       synthesizer,
		Radio:       orchestrator,
		Player:      queue,
		Defaults:    defaults,
	}, appCfg.OwnerID)

	router := api.NewServer(handler, api.ServerOptions{
		APIAccessKey:  appCfg.APIAccessKey,
		Events:        hub,
		StoragePrefix: bucket.URLPrefix(),
		StorageDir:    bucket.Dir(),
	})

	// No write timeout: /events streams stay open for the whole session.
	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	scheduler.Start()
	defer scheduler.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", appCfg.PublicBaseURL())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return catalog.Watch(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := orchestrator.Stop(shutdownCtx); err != nil && !apperr.As[*apperr.ConfigurationError](err) {
			slog.Warn("Radio did not stop cleanly", "error", err)
		}
		hub.Close()

		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("RSS Radio shutdown complete")
	return nil
}
