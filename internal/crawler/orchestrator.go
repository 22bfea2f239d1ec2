// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package crawler

import (
	"context"
	"time"

	"github.com/cinegraph/cinegraph/internal/logging"
)

// Orchestrator runs article discovery to completion for the configured
// year range, then film resolution over the same range. It owns no
// resources itself; the pool and HTTP clients are handed in and live for
// the duration of the run.
type Orchestrator struct {
	articles *ArticleCrawler
	films    *FilmCrawler
	cfg      Config
}

// NewOrchestrator wires both phases over shared collaborators.
func NewOrchestrator(db Database, wikipedia WikipediaClient, omdbClient OMDBClient, cfg Config) *Orchestrator {
	return &Orchestrator{
		articles: NewArticleCrawler(db, wikipedia, cfg.MaxConnections),
		films:    NewFilmCrawler(db, wikipedia, omdbClient, cfg.MaxConnections, cfg.Step),
		cfg:      cfg,
	}
}

// Run executes both phases. Reruns over the same range converge: every
// write is an upsert keyed on a business identifier.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()
	logging.Info().
		Int("start_year", o.cfg.StartYear).
		Int("stop_year", o.cfg.StopYear).
		Int("max_connections", o.cfg.MaxConnections).
		Msg("Crawl started")

	if err := o.articles.Run(ctx, o.cfg.StartYear, o.cfg.StopYear); err != nil {
		return err
	}
	if err := o.films.Run(ctx, o.cfg.StartYear, o.cfg.StopYear); err != nil {
		return err
	}

	logging.Info().Dur("elapsed", time.Since(started)).Msg("Crawl finished")
	return nil
}
