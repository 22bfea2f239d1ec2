// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Command cinegraph crawls the configured year range: Wikipedia article
// discovery first, then OMDb film resolution, persisted to the store named
// by CINEGRAPH_DATABASE_URI.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinegraph/cinegraph/internal/config"
	"github.com/cinegraph/cinegraph/internal/crawler"
	"github.com/cinegraph/cinegraph/internal/database"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/omdb"
	"github.com/cinegraph/cinegraph/internal/wikipedia"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Err(err).Msg("Configuration failed")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.Listen)
	}

	db, err := database.Open(ctx, cfg.Database.URI, cfg.Database.MaxConnections, cfg.Database.AcquireTimeout)
	if err != nil {
		logging.Err(err).Msg("Database connection failed")
		return 1
	}
	defer closePool(db)

	wikipediaClient := wikipedia.NewClient(wikipedia.Config{
		APIURL:            cfg.Wikipedia.APIURL,
		PetScanURL:        cfg.Wikipedia.PetScanURL,
		RequestsPerSecond: cfg.Wikipedia.RequestsPerSecond,
		RetryInterval:     cfg.Crawl.RetryInterval,
	}, nil)
	omdbClient := omdb.NewCircuitBreakerClient(omdb.Config{
		APIURL:            cfg.OMDb.APIURL,
		APIKey:            cfg.OMDb.APIKey,
		RequestsPerSecond: cfg.OMDb.RequestsPerSecond,
		RetryInterval:     cfg.Crawl.RetryInterval,
	}, nil)

	orchestrator := crawler.NewOrchestrator(db, wikipediaClient, omdbClient, crawler.Config{
		StartYear:      cfg.Crawl.StartYear,
		StopYear:       cfg.Crawl.StopYear,
		MaxConnections: cfg.Database.MaxConnections,
		Step:           cfg.Crawl.Step,
	})
	if err := orchestrator.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logging.Warn().Msg("Crawl interrupted")
			return 130
		}
		logging.Err(err).Msg("Crawl failed")
		return 1
	}
	return 0
}

// startMetricsServer serves GET /metrics until the run context ends.
func startMetricsServer(ctx context.Context, listen string) {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info().Str("listen", listen).Msg("Metrics endpoint started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Err(err).Msg("Metrics endpoint failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Metrics endpoint shutdown failed")
		}
	}()
}

func closePool(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database pool")
	}
}
