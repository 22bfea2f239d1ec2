// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package crawler implements the two-phase ingestion pipeline: article
// discovery over the Wikipedia film-category graph, then film resolution
// against OMDb, persisted through the database package.
package crawler

import (
	"context"
	"database/sql"

	"github.com/cinegraph/cinegraph/internal/database"
	"github.com/cinegraph/cinegraph/internal/models"
)

// Database is the slice of the data-access layer the pipeline uses.
// *database.DB implements it.
type Database interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Release(conn *sql.Conn)
	Insert(ctx context.Context, conn *sql.Conn, table database.Table, records []database.Record, merge bool) error
	InsertReturning(ctx context.Context, conn *sql.Conn, table database.Table, records []database.Record, merge bool) ([]int64, error)
	Fetch(ctx context.Context, conn *sql.Conn, table string, columns []string, opts database.QueryOptions) ([]database.Record, error)
	FetchRecordsCount(ctx context.Context, conn *sql.Conn, table string, filters []database.Filter) (int, error)
}

// WikipediaClient lists film articles and resolves them to IMDb ids and
// plot text. *wikipedia.Client implements it.
type WikipediaClient interface {
	FilmArticleTitles(ctx context.Context, year int) ([]string, error)
	ResolveIMDBID(ctx context.Context, title string) (int, bool, error)
	PlotContent(ctx context.Context, title string) *string
}

// OMDBClient fetches raw film records. *omdb.CircuitBreakerClient
// implements it.
type OMDBClient interface {
	Film(ctx context.Context, imdbID, year int) (models.OMDbFilm, error)
}

// Config bounds the pipeline. MaxConnections is the sole concurrency
// knob: it sizes the connection pool, the per-wave year fan-out of
// Phase A, and the batch width of Phase B. Step is Phase B's pagination
// window over the articles table.
type Config struct {
	StartYear      int
	StopYear       int
	MaxConnections int
	Step           int
}
