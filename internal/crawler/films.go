// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package crawler

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cinegraph/cinegraph/internal/database"
	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/metrics"
	"github.com/cinegraph/cinegraph/internal/models"
	"github.com/cinegraph/cinegraph/internal/omdb"
)

// FilmCrawler resolves known articles into films and their related
// entities (Phase B).
type FilmCrawler struct {
	db             Database
	wikipedia      WikipediaClient
	omdb           OMDBClient
	maxConnections int
	step           int
}

// NewFilmCrawler builds the Phase B crawler.
func NewFilmCrawler(db Database, wikipedia WikipediaClient, omdbClient OMDBClient, maxConnections, step int) *FilmCrawler {
	return &FilmCrawler{
		db:             db,
		wikipedia:      wikipedia,
		omdb:           omdbClient,
		maxConnections: maxConnections,
		step:           step,
	}
}

// articleRow is one page entry of the articles table.
type articleRow struct {
	id    int64
	title string
	year  int
}

// Run walks the articles in [start, stop) in year-ascending pages of the
// configured step, splitting each page into batches sized so that a full
// page spreads over maxConnections batches. Batches run sequentially; the
// per-article resolution inside a batch runs concurrently.
func (c *FilmCrawler) Run(ctx context.Context, start, stop int) error {
	total, err := c.countArticles(ctx, start, stop)
	if err != nil {
		return err
	}
	if total == 0 {
		logging.Info().Int("start", start).Int("stop", stop).Msg("No articles to resolve")
		return nil
	}

	batchSize := max((c.step+c.maxConnections-1)/c.maxConnections, 1)
	logging.Info().
		Int("articles", total).
		Int("step", c.step).
		Int("batch_size", batchSize).
		Msg("Film resolution started")

	for offset := 0; offset < total; offset += c.step {
		stepEnd := min(offset+c.step, total)
		for batchOffset := offset; batchOffset < stepEnd; batchOffset += batchSize {
			batchLimit := min(stepEnd-batchOffset, batchSize)
			if err := c.processBatch(ctx, start, stop, batchLimit, batchOffset); err != nil {
				return fmt.Errorf("film resolution failed: %w", err)
			}
		}
	}
	return nil
}

func (c *FilmCrawler) countArticles(ctx context.Context, start, stop int) (int, error) {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer c.db.Release(conn)

	total, err := c.db.FetchRecordsCount(ctx, conn, models.Articles.Name,
		[]database.Filter{database.Between("year", start, stop)})
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return total, nil
}

// processBatch fetches one batch of articles, resolves them concurrently,
// and persists the results over a single connection.
func (c *FilmCrawler) processBatch(ctx context.Context, start, stop, limit, offset int) error {
	conn, err := c.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.db.Release(conn)

	rows, err := c.db.Fetch(ctx, conn, models.Articles.Name, []string{"id", "title", "year"},
		database.QueryOptions{
			Filters:   []database.Filter{database.Between("year", start, stop)},
			Orderings: []database.Ordering{database.Asc("year")},
			Limit:     &limit,
			Offset:    &offset,
		})
	if err != nil {
		return fmt.Errorf("failed to fetch article batch at offset %d: %w", offset, err)
	}
	if len(rows) == 0 {
		return nil
	}

	articles := make([]articleRow, len(rows))
	for i, row := range rows {
		article, err := articleFromRecord(row)
		if err != nil {
			return err
		}
		articles[i] = article
	}

	films := c.resolveBatch(ctx, articles)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(films) == 0 {
		return nil
	}
	if err := c.persistBatch(ctx, conn, films); err != nil {
		return err
	}

	metrics.FilmsResolved.Add(float64(len(films)))
	logging.Info().
		Int("offset", offset).
		Int("articles", len(articles)).
		Int("films", len(films)).
		Msg("Batch persisted")
	return nil
}

// resolveBatch fans one task out per article. Skips drop out of the
// result; resolution order within the batch is preserved for the rest.
func (c *FilmCrawler) resolveBatch(ctx context.Context, articles []articleRow) []models.Film {
	resolved := make([]*models.Film, len(articles))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, article := range articles {
		group.Go(func() error {
			resolved[i] = c.resolveArticle(groupCtx, article)
			return nil
		})
	}
	// Tasks report skips via nil entries, never errors.
	_ = group.Wait()

	films := make([]models.Film, 0, len(articles))
	for _, film := range resolved {
		if film != nil {
			films = append(films, *film)
		}
	}
	return films
}

// resolveArticle turns one article into a film entity, or nil when the
// article has to be skipped. Skips are logged with their reason and
// counted; they never abort the batch.
func (c *FilmCrawler) resolveArticle(ctx context.Context, article articleRow) *models.Film {
	skip := func(reason string, err error) *models.Film {
		metrics.FilmsSkipped.WithLabelValues(reason).Inc()
		logging.Warn().
			Err(err).
			Str("title", article.title).
			Int("year", article.year).
			Str("reason", reason).
			Msg("Article skipped")
		return nil
	}

	imdbID, found, err := c.wikipedia.ResolveIMDBID(ctx, article.title)
	if err != nil {
		return skip("http", err)
	}
	if !found {
		return skip("no_imdb_id", nil)
	}

	record, err := c.omdb.Film(ctx, imdbID, article.year)
	if err != nil {
		if omdb.IsRejected(err) {
			return skip("breaker_open", err)
		}
		return skip("http", err)
	}
	if !record.Found() {
		return skip("not_found", fmt.Errorf("%s", record.Error))
	}

	film, err := models.DeserializeFilm(record, article.id)
	if err != nil {
		return skip("deserialize", err)
	}
	film.Plot.WikipediaContent = c.wikipedia.PlotContent(ctx, article.title)
	return &film
}

// persistBatch writes one batch in dependency order over one connection:
// plots, then films, then related entities, then join rows. Returned id
// lists zip positionally with their inputs throughout.
func (c *FilmCrawler) persistBatch(ctx context.Context, conn *sql.Conn, films []models.Film) error {
	plotRecords := make([]database.Record, len(films))
	for i, film := range films {
		plotRecords[i] = film.Plot.Record()
	}
	plotIDs, err := c.db.InsertReturning(ctx, conn, models.Plots, plotRecords, true)
	if err != nil {
		return fmt.Errorf("failed to insert plots: %w", err)
	}
	for i := range films {
		films[i].PlotID = &plotIDs[i]
	}

	filmRecords := make([]database.Record, len(films))
	for i, film := range films {
		filmRecords[i] = film.Record()
	}
	filmIDs, err := c.db.InsertReturning(ctx, conn, models.Films, filmRecords, true)
	if err != nil {
		return fmt.Errorf("failed to upsert films: %w", err)
	}

	related := []struct {
		entities database.Table
		join     database.Table
		names    func(models.Film) []string
	}{
		{models.Genres, models.FilmsGenres, func(f models.Film) []string { return f.Genres }},
		{models.Directors, models.FilmsDirectors, func(f models.Film) []string { return f.Directors }},
		{models.Writers, models.FilmsWriters, func(f models.Film) []string { return f.Writers }},
		{models.Actors, models.FilmsActors, func(f models.Film) []string { return f.Actors }},
	}
	for _, rel := range related {
		var joinRecords []database.Record
		for i, film := range films {
			names := rel.names(film)
			if len(names) == 0 {
				continue
			}
			nameRecords := make([]database.Record, len(names))
			for j, name := range names {
				nameRecords[j] = database.Record{name}
			}
			relatedIDs, err := c.db.InsertReturning(ctx, conn, rel.entities, nameRecords, true)
			if err != nil {
				return fmt.Errorf("failed to upsert %s: %w", rel.entities.Name, err)
			}
			for _, relatedID := range relatedIDs {
				joinRecords = append(joinRecords, database.Record{filmIDs[i], relatedID})
			}
		}
		if err := c.db.Insert(ctx, conn, rel.join, joinRecords, false); err != nil {
			return fmt.Errorf("failed to insert %s: %w", rel.join.Name, err)
		}
	}
	return nil
}

func articleFromRecord(record database.Record) (articleRow, error) {
	if len(record) != 3 {
		return articleRow{}, fmt.Errorf("article row has %d columns, want 3", len(record))
	}
	id, ok := toInt64(record[0])
	if !ok {
		return articleRow{}, fmt.Errorf("article id has unexpected type %T", record[0])
	}
	title, ok := record[1].(string)
	if !ok {
		return articleRow{}, fmt.Errorf("article title has unexpected type %T", record[1])
	}
	year, ok := toInt64(record[2])
	if !ok {
		return articleRow{}, fmt.Errorf("article year has unexpected type %T", record[2])
	}
	return articleRow{id: id, title: title, year: int(year)}, nil
}

func toInt64(v database.Value) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
