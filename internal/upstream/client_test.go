// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetJSONRetriesOnTimeoutStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(StatusTimeoutOccurred)
			return
		}
		w.Write([]byte(`{"value":"ok"}`))
	}))
	defer server.Close()

	client := New(server.Client(), 0, time.Millisecond)
	var out struct {
		Value string `json:"value"`
	}
	if err := client.GetJSON(context.Background(), server.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Value != "ok" {
		t.Errorf("decoded value = %q, want ok", out.Value)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestGetJSONTerminalStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.Client(), 0, time.Millisecond)
	var out struct{}
	if err := client.GetJSON(context.Background(), server.URL, nil, &out); err == nil {
		t.Fatal("GetJSON() accepted a 500 response")
	}
}

func TestGetJSONDecodeFailureIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := New(server.Client(), 0, time.Millisecond)
	var out struct {
		Value string `json:"value"`
	}
	if err := client.GetJSON(context.Background(), server.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v, want nil on decode failure", err)
	}
	if out.Value != "" {
		t.Errorf("decoded value = %q, want empty", out.Value)
	}
}

func TestGetJSONSendsQueryParameters(t *testing.T) {
	t.Parallel()

	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := New(server.Client(), 0, time.Millisecond)
	params := url.Values{}
	params.Set("format", "json")
	params.Set("categories", "1999_films")
	var out struct{}
	if err := client.GetJSON(context.Background(), server.URL, params, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got.Get("format") != "json" || got.Get("categories") != "1999_films" {
		t.Errorf("server saw query %v", got)
	}
}

func TestGetJSONRetryYieldsToCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(StatusTimeoutOccurred)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := New(server.Client(), 0, time.Hour)

	done := make(chan error, 1)
	go func() {
		var out struct{}
		done <- client.GetJSON(ctx, server.URL, nil, &out)
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("GetJSON() returned nil after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("GetJSON() did not yield to cancellation")
	}
}
