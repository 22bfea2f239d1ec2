// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package database provides dialect-aware access to the catalog store.
//
// The store is selected by URI: a scheme starting with "mysql" picks the
// MySQL driver, anything else the pgx PostgreSQL driver. All query text is
// produced by the builder in query.go through the Dialect interface, so the
// callers above this package never branch on the engine.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cinegraph/cinegraph/internal/logging"
)

// Table describes a catalog table to the data-access layer.
type Table struct {
	Name string

	// Columns lists every column, primary key included.
	Columns []string

	// UniqueColumns names the natural-key constraint used for upserts.
	// Empty for tables whose only constraint is the primary key.
	UniqueColumns []string

	// PrimaryKey is the auto-generated surrogate id column, or "" for
	// association tables without one.
	PrimaryKey string
}

// InsertColumns returns Columns without the auto-generated primary key.
func (t Table) InsertColumns() []string {
	if t.PrimaryKey == "" {
		return t.Columns
	}
	columns := make([]string, 0, len(t.Columns)-1)
	for _, column := range t.Columns {
		if column != t.PrimaryKey {
			columns = append(columns, column)
		}
	}
	return columns
}

// DB wraps the connection pool together with its dialect.
type DB struct {
	pool           *sql.DB
	dialect        Dialect
	acquireTimeout time.Duration
}

// Open connects to the store named by uri and verifies the connection.
// maxConnections bounds the pool; acquireTimeout bounds each Acquire call
// (zero waits indefinitely).
func Open(ctx context.Context, uri string, maxConnections int, acquireTimeout time.Duration) (*DB, error) {
	dialect := DialectFor(uri)

	var driverName, dsn string
	if dialect.Name() == "mysql" {
		driverName = "mysql"
		converted, err := MySQLDSN(uri)
		if err != nil {
			return nil, err
		}
		dsn = converted
	} else {
		driverName = "pgx"
		dsn = stripDriverSuffix(uri)
	}

	pool, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s pool: %w", dialect.Name(), err)
	}
	pool.SetMaxOpenConns(maxConnections)
	pool.SetMaxIdleConns(maxConnections)
	pool.SetConnMaxIdleTime(5 * time.Minute)

	if err := pool.PingContext(ctx); err != nil {
		closeQuietly(pool)
		return nil, fmt.Errorf("failed to connect to %s store: %w", dialect.Name(), err)
	}

	logging.Info().
		Str("dialect", dialect.Name()).
		Int("max_connections", maxConnections).
		Msg("Database pool established")
	return &DB{pool: pool, dialect: dialect, acquireTimeout: acquireTimeout}, nil
}

// Dialect returns the dialect the pool was opened with.
func (db *DB) Dialect() Dialect { return db.dialect }

// Acquire checks a single connection out of the pool. The caller must
// release it with Release once its batch of statements is done.
func (db *DB) Acquire(ctx context.Context) (*sql.Conn, error) {
	if db.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.acquireTimeout)
		defer cancel()
	}
	conn, err := db.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// Release returns a connection to the pool.
func (db *DB) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release connection")
	}
}

// Close shuts the pool down.
func (db *DB) Close() error {
	return db.pool.Close()
}

// stripDriverSuffix removes a "+driver" marker from the URI scheme, e.g.
// postgresql+asyncpg://... becomes postgresql://...
func stripDriverSuffix(uri string) string {
	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return uri
	}
	if base, _, hasSuffix := strings.Cut(scheme, "+"); hasSuffix {
		scheme = base
	}
	return scheme + "://" + rest
}

func closeQuietly(pool *sql.DB) {
	if err := pool.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close pool")
	}
}
