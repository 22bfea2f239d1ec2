// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package metrics provides Prometheus metrics for the crawl pipeline.
//
// Metrics are exposed at the optional /metrics endpoint (see cmd/cinegraph)
// in Prometheus text format.
//
// Crawl metrics:
//   - crawl_articles_discovered_total: articles upserted during Phase A
//   - crawl_articles_skipped_total: article listings lost to upstream errors
//     Labels: reason (http, decode)
//   - crawl_films_resolved_total: films persisted during Phase B
//   - crawl_films_skipped_total: articles that produced no film
//     Labels: reason (no_imdb_id, http, not_found, deserialize, breaker_open)
//
// HTTP metrics:
//   - http_retries_total: transient-timeout retries against upstreams
//     Labels: host
//
// Database metrics:
//   - db_query_duration_seconds: query execution time
//     Labels: operation (execute, insert, insert_returning, fetch, delete)
//   - db_batch_size: records per persistence batch
//
// Circuit breaker metrics:
//   - circuit_breaker_state: 0=closed, 1=half-open, 2=open
//     Labels: name
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Phase A
	ArticlesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawl_articles_discovered_total",
			Help: "Total number of film articles upserted during article discovery",
		},
	)

	ArticlesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_articles_skipped_total",
			Help: "Total number of per-year article listings lost to upstream failures",
		},
		[]string{"reason"},
	)

	// Phase B
	FilmsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawl_films_resolved_total",
			Help: "Total number of films persisted during film resolution",
		},
	)

	FilmsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_films_skipped_total",
			Help: "Total number of articles that produced no film row",
		},
		[]string{"reason"}, // "no_imdb_id", "http", "not_found", "deserialize", "breaker_open"
	)

	// Upstream HTTP
	HTTPRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_retries_total",
			Help: "Total number of retries after transient upstream timeouts (HTTP 522)",
		},
		[]string{"host"},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation"},
	)

	DBBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_batch_size",
			Help:    "Number of records per persistence batch",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000, 10000},
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
