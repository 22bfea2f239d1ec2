// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package crawler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cinegraph/cinegraph/internal/database"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/metrics"
	"github.com/cinegraph/cinegraph/internal/models"
)

// ArticleCrawler populates the articles table for a year range (Phase A).
type ArticleCrawler struct {
	db        Database
	wikipedia WikipediaClient
	waveWidth int
}

// NewArticleCrawler builds the Phase A crawler. waveWidth bounds how many
// years are discovered concurrently.
func NewArticleCrawler(db Database, wikipedia WikipediaClient, waveWidth int) *ArticleCrawler {
	return &ArticleCrawler{db: db, wikipedia: wikipedia, waveWidth: waveWidth}
}

// Run discovers articles for every year in [start, stop), fanning out in
// sequential waves of the configured width. An upstream failure costs that
// year's listing only; a database failure aborts the run.
func (c *ArticleCrawler) Run(ctx context.Context, start, stop int) error {
	for waveStart := start; waveStart < stop; waveStart += c.waveWidth {
		waveStop := min(waveStart+c.waveWidth, stop)

		group, groupCtx := errgroup.WithContext(ctx)
		for year := waveStart; year < waveStop; year++ {
			group.Go(func() error {
				return c.crawlYear(groupCtx, year)
			})
		}
		if err := group.Wait(); err != nil {
			return fmt.Errorf("article discovery failed: %w", err)
		}
	}
	return nil
}

// crawlYear lists one year's category members and upserts them keyed on
// (title, year).
func (c *ArticleCrawler) crawlYear(ctx context.Context, year int) error {
	titles, err := c.wikipedia.FilmArticleTitles(ctx, year)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.ArticlesSkipped.WithLabelValues("http").Inc()
		logging.Warn().Err(err).Int("year", year).Msg("Article listing lost for year")
		return nil
	}
	if len(titles) == 0 {
		logging.Debug().Int("year", year).Msg("No film articles for year")
		return nil
	}

	records := make([]database.Record, len(titles))
	for i, title := range titles {
		records[i] = models.Article{Title: title, Year: year}.Record()
	}

	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.db.Release(conn)

	if err := c.db.Insert(ctx, conn, models.Articles, records, true); err != nil {
		return fmt.Errorf("failed to upsert articles for year %d: %w", year, err)
	}

	metrics.ArticlesDiscovered.Add(float64(len(titles)))
	logging.Info().Int("year", year).Int("articles", len(titles)).Msg("Articles discovered")
	return nil
}
