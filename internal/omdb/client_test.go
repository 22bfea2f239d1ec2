// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package omdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cinegraph/cinegraph/internal/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIURL:        server.URL,
		APIKey:        "k",
		RetryInterval: time.Millisecond,
	}, server.Client())
}

func TestFilmRequestShape(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("i"); got != "tt0133093" {
			t.Errorf("i = %q, want tt0133093", got)
		}
		if got := query.Get("y"); got != "1999" {
			t.Errorf("y = %q, want 1999", got)
		}
		if query.Get("plot") != "full" || query.Get("tomatoes") != "true" || query.Get("r") != "json" {
			t.Errorf("fixed params = %v", query)
		}
		if got := query.Get("apikey"); got != "k" {
			t.Errorf("apikey = %q", got)
		}
		w.Write([]byte(`{"Title":"The Matrix","Type":"movie","imdbID":"tt0133093","Response":"True"}`))
	})

	record, err := client.Film(context.Background(), 133093, 1999)
	if err != nil {
		t.Fatalf("Film() error = %v", err)
	}
	if !record.Found() || record.Title != "The Matrix" {
		t.Errorf("Film() = %+v", record)
	}
}

func TestFilmZeroPadsShortIDs(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("i"); got != "tt0000001" {
			t.Errorf("i = %q, want tt0000001", got)
		}
		w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})

	record, err := client.Film(context.Background(), 1, 1894)
	if err != nil {
		t.Fatalf("Film() error = %v", err)
	}
	if record.Found() {
		t.Errorf("Film() = %+v, want not found", record)
	}
}

func TestFilmRetriesTransientTimeout(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(upstream.StatusTimeoutOccurred)
			return
		}
		w.Write([]byte(`{"Title":"Alien","Type":"movie","imdbID":"tt0078748","Response":"True"}`))
	})

	record, err := client.Film(context.Background(), 78748, 1979)
	if err != nil {
		t.Fatalf("Film() error = %v", err)
	}
	if !record.Found() || calls.Load() != 2 {
		t.Errorf("Film() = %+v after %d calls", record, calls.Load())
	}
}

func TestFilmUndecodableBodyIsNotFound(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway</html>"))
	})

	record, err := client.Film(context.Background(), 1, 2000)
	if err != nil {
		t.Fatalf("Film() error = %v", err)
	}
	if record.Found() {
		t.Errorf("Film() = %+v, want not found", record)
	}
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Title":"Alien","Type":"movie","imdbID":"tt0078748","Response":"True"}`))
	}))
	t.Cleanup(server.Close)

	client := NewCircuitBreakerClient(Config{
		APIURL:        server.URL,
		RetryInterval: time.Millisecond,
	}, server.Client())

	record, err := client.Film(context.Background(), 78748, 1979)
	if err != nil {
		t.Fatalf("Film() error = %v", err)
	}
	if !record.Found() {
		t.Errorf("Film() = %+v", record)
	}
}
