// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package omdb fetches structured film records from the OMDb API.
package omdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cinegraph/cinegraph/internal/models"
	"github.com/cinegraph/cinegraph/internal/upstream"
)

// Config configures the OMDb client.
type Config struct {
	APIURL            string
	APIKey            string
	RequestsPerSecond float64
	RetryInterval     time.Duration
}

// Client talks to the OMDb API.
type Client struct {
	apiURL string
	apiKey string
	http   *upstream.Client
}

// NewClient builds a client; httpClient may be nil for a default one.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		http:   upstream.New(httpClient, cfg.RequestsPerSecond, cfg.RetryInterval),
	}
}

// Film fetches the record for a zero-padded IMDb id scoped to a release
// year. A record OMDb could not locate, or an undecodable body, comes back
// with Found() false; the error covers terminal HTTP failures only.
func (c *Client) Film(ctx context.Context, imdbID, year int) (models.OMDbFilm, error) {
	params := url.Values{}
	params.Set("i", fmt.Sprintf("tt%07d", imdbID))
	params.Set("y", fmt.Sprintf("%d", year))
	params.Set("plot", "full")
	params.Set("tomatoes", "true")
	params.Set("r", "json")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	var record models.OMDbFilm
	if err := c.http.GetJSON(ctx, c.apiURL, params, &record); err != nil {
		return models.OMDbFilm{}, fmt.Errorf("OMDb lookup of tt%07d failed: %w", imdbID, err)
	}
	return record, nil
}
