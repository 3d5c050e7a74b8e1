// Package main wires together the codehawks-scrapper service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	pubsubclient "cloud.google.com/go/pubsub"

	"github.com/FelllGit/codehawks-scrapper/internal/api"
	"github.com/FelllGit/codehawks-scrapper/internal/clock/system"
	"github.com/FelllGit/codehawks-scrapper/internal/config"
	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
	"github.com/FelllGit/codehawks-scrapper/internal/crawler/codehawks"
	"github.com/FelllGit/codehawks-scrapper/internal/diagnostics"
	"github.com/FelllGit/codehawks-scrapper/internal/diagnostics/sinks"
	"github.com/FelllGit/codehawks-scrapper/internal/github"
	iduuid "github.com/FelllGit/codehawks-scrapper/internal/id/uuid"
	"github.com/FelllGit/codehawks-scrapper/internal/logging"
	"github.com/FelllGit/codehawks-scrapper/internal/metrics"
	memorypublisher "github.com/FelllGit/codehawks-scrapper/internal/publisher/memory"
	pubsubpublisher "github.com/FelllGit/codehawks-scrapper/internal/publisher/pubsub"
	"github.com/FelllGit/codehawks-scrapper/internal/renderer"
	gcsstorage "github.com/FelllGit/codehawks-scrapper/internal/storage/gcs"
	memorystorage "github.com/FelllGit/codehawks-scrapper/internal/storage/memory"
	"github.com/FelllGit/codehawks-scrapper/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	browser, err := renderer.New(renderer.Config{
		UserAgent:         cfg.Headless.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		MaxSessions:       cfg.Headless.MaxSessions,
	}, logger.Named("renderer"))
	if err != nil {
		logger.Fatal("renderer init failed", zap.Error(err))
	}

	languages := github.NewClient(github.Config{
		APIBase: cfg.GitHub.APIBase,
		Token:   cfg.GitHub.Token,
		Timeout: cfg.GitHubTimeout(),
	}, logger.Named("github"))

	snapshots := buildSnapshotStore(ctx, cfg, logger)
	store := buildContestStore(ctx, cfg, logger)
	publisher := buildPublisher(ctx, cfg, logger)

	hub := diagnostics.NewHub(
		diagnostics.Config{Logger: logger.Named("diagnostics")},
		sinks.NewLogSink(logger.Named("anomalies")),
		sinks.NewPrometheusSink(),
	)

	clock := system.New()
	idGen := iduuid.New()

	hawks := codehawks.New(
		browser,
		languages,
		clock,
		idGen,
		snapshots,
		hub,
		codehawks.Config{
			ListingURL:     cfg.Crawler.ListingURL,
			Origin:         cfg.Crawler.Origin,
			Concurrency:    cfg.Crawler.Concurrency,
			TooltipTimeout: cfg.TooltipTimeout(),
		},
		logger.Named("codehawks"),
	)

	server := api.NewServer(
		[]crawler.Source{hawks},
		store,
		publisher,
		cfg.PubSub.TopicName,
		idGen,
		clock,
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	if err := browser.Close(shutdownCtx); err != nil {
		logger.Error("renderer shutdown error", zap.Error(err))
	}
	hub.Close(shutdownCtx)
	if closer, ok := store.(*postgres.ContestStore); ok {
		closer.Close()
	}
	logger.Info("shutdown complete")
}

// buildSnapshotStore picks GCS when a bucket is configured, otherwise keeps
// snapshots in memory (discarded on exit).
func buildSnapshotStore(ctx context.Context, cfg config.Config, logger *zap.Logger) crawler.BlobStore {
	if cfg.Storage.GCSBucket == "" {
		logger.Info("snapshot archive: in-memory (no gcs bucket configured)")
		return memorystorage.NewBlobStore()
	}
	client, err := gcsclient.NewClient(ctx)
	if err != nil {
		logger.Warn("gcs client init failed, falling back to memory snapshots", zap.Error(err))
		return memorystorage.NewBlobStore()
	}
	blobStore, err := gcsstorage.New(client, gcsstorage.Config{
		Bucket: cfg.Storage.GCSBucket,
		Prefix: cfg.Storage.Prefix,
	})
	if err != nil {
		logger.Warn("gcs blob store init failed, falling back to memory snapshots", zap.Error(err))
		return memorystorage.NewBlobStore()
	}
	logger.Info("snapshot archive: gcs", zap.String("bucket", cfg.Storage.GCSBucket))
	return blobStore
}

// buildContestStore connects Postgres when a DSN is configured; otherwise
// crawled batches are only returned over HTTP, not persisted.
func buildContestStore(ctx context.Context, cfg config.Config, logger *zap.Logger) crawler.ContestStore {
	if cfg.DB.DSN == "" {
		logger.Warn("no db.dsn configured, contest persistence disabled")
		return nil
	}
	store, err := postgres.NewContestStore(ctx, postgres.ContestStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		logger.Fatal("contest store init failed", zap.Error(err))
	}
	return store
}

// buildPublisher connects Pub/Sub when a project is configured; the memory
// publisher keeps local runs observable.
func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) crawler.Publisher {
	if cfg.PubSub.ProjectID == "" {
		return memorypublisher.New()
	}
	client, err := pubsubclient.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Warn("pubsub client init failed, falling back to memory publisher", zap.Error(err))
		return memorypublisher.New()
	}
	logger.Info("summary publisher: pubsub", zap.String("topic", cfg.PubSub.TopicName))
	return pubsubpublisher.New(client)
}
