package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/quake-map/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/quake-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-map/internal/adapter/kafka"
	"github.com/couchcryptid/quake-map/internal/config"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/couchcryptid/quake-map/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cache := feed.NewConditionalCache()
	quakes := feed.NewClient(feed.Options{
		Name:        "quakes",
		URL:         cfg.QuakeFeedURL,
		Timeout:     cfg.FeedTimeout,
		MinInterval: cfg.FeedMinInterval,
		Cache:       cache,
	}, metrics, logger)
	plates := feed.NewClient(feed.Options{
		Name:        "plates",
		URL:         cfg.PlateFeedURL,
		Timeout:     cfg.FeedTimeout,
		MinInterval: cfg.FeedMinInterval,
		Cache:       cache,
	}, metrics, logger)

	// Marker publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var (
		loader pipeline.MarkerLoader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loader = writer
		metrics.PublishEnabled.Set(1)
		logger.Info("marker publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaMarkerTopic)
	} else {
		logger.Info("marker publishing disabled")
	}

	transformer := pipeline.NewTransformer(logger)
	p := pipeline.New(quakes, plates, transformer, loader, logger, metrics, cfg.RefreshInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
