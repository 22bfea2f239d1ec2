// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package upstream implements the HTTP policy shared by every crawler
// client: rate limiting, unlimited retry on transient CDN timeouts
// (HTTP 522), and tolerant JSON decoding.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/metrics"
)

// StatusTimeoutOccurred is the CDN status for "a timeout occurred".
const StatusTimeoutOccurred = 522

const defaultRequestTimeout = 30 * time.Second

// Client issues rate-limited JSON GET requests against one endpoint.
type Client struct {
	http          *http.Client
	limiter       *rate.Limiter
	retryInterval time.Duration
}

// New builds a client. requestsPerSecond of zero disables throttling;
// httpClient may be nil for a default client with a request timeout.
func New(httpClient *http.Client, requestsPerSecond float64, retryInterval time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{http: httpClient, limiter: limiter, retryInterval: retryInterval}
}

// GetJSON requests rawURL with the given query parameters and decodes the
// response body into v.
//
// An HTTP 522 or a network timeout sleeps for the retry interval and
// retries without limit, yielding to ctx between sleeps. Any other
// non-200 status is terminal. A body that fails to decode is logged and
// leaves v untouched, so the caller sees an empty result.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	requestURL := rawURL
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	for attempt := 1; ; attempt++ {
		body, retry, err := c.get(ctx, requestURL)
		if err != nil {
			return err
		}
		if !retry {
			if err := json.Unmarshal(body, v); err != nil {
				logging.Warn().
					Err(err).
					Str("url", rawURL).
					Msg("Failed to decode upstream response, treating as empty")
			}
			return nil
		}

		logging.Debug().
			Str("url", rawURL).
			Int("attempt", attempt).
			Dur("retry_interval", c.retryInterval).
			Msg("Upstream timeout, will retry")
		select {
		case <-time.After(c.retryInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// get performs one request. retry is true for transient timeouts.
func (c *Client) get(ctx context.Context, requestURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		if isTimeout(err) {
			metrics.HTTPRetries.WithLabelValues(req.URL.Host).Inc()
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == StatusTimeoutOccurred {
		metrics.HTTPRetries.WithLabelValues(req.URL.Host).Inc()
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%s answered with status %d", req.URL.Host, resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	return body, false, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close response body")
	}
}
