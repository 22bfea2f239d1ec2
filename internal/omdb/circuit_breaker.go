// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package omdb

import (
	"context"
	"errors"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/metrics"
	"github.com/cinegraph/cinegraph/internal/models"
)

// CircuitBreakerClient wraps Client so that a persistently failing OMDb
// endpoint stops consuming the crawl's time. An open circuit rejects the
// lookup immediately; callers treat rejection as a skip, not a fatal error.
//
// The breaker never sees the 522 retry loop: transient timeouts are
// retried inside the call and do not count as failures here.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[models.OMDbFilm]
	name   string
}

// NewCircuitBreakerClient creates an OMDb client with circuit breaker.
// The circuit opens after a 60% failure rate over at least 10 requests in
// a one-minute window and probes again after two minutes.
func NewCircuitBreakerClient(cfg Config, httpClient *http.Client) *CircuitBreakerClient {
	cbName := "omdb-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[models.OMDbFilm](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening OMDb circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("OMDb circuit state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &CircuitBreakerClient{
		client: NewClient(cfg, httpClient),
		cb:     cb,
		name:   cbName,
	}
}

// Film fetches the record through the circuit breaker.
func (c *CircuitBreakerClient) Film(ctx context.Context, imdbID, year int) (models.OMDbFilm, error) {
	return c.cb.Execute(func() (models.OMDbFilm, error) {
		return c.client.Film(ctx, imdbID, year)
	})
}

// IsRejected reports whether the error came from the breaker itself rather
// than from the upstream call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
