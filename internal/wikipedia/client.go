// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package wikipedia lists film articles through PetScan and resolves
// article titles to IMDb ids and plot text through the Wikipedia API.
package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/upstream"
)

var imdbLinkPattern = regexp.MustCompile(`tt(\d+)`)

// plotSectionNames are the wikitext headings whose bodies make up an
// article's plot, in concatenation order.
var plotSectionNames = []string{
	"Plot", "PlotEdit", "Synopsis", "Plot summary", "Plot synopsis",
}

// Config configures the client endpoints and politeness limits.
type Config struct {
	APIURL            string
	PetScanURL        string
	RequestsPerSecond float64
	RetryInterval     time.Duration
}

// Client talks to the Wikipedia API and PetScan.
type Client struct {
	apiURL     string
	petScanURL string
	api        *upstream.Client
	petScan    *upstream.Client
}

// NewClient builds a client; httpClient may be nil for a default one.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	return &Client{
		apiURL:     cfg.APIURL,
		petScanURL: cfg.PetScanURL,
		api:        upstream.New(httpClient, cfg.RequestsPerSecond, cfg.RetryInterval),
		petScan:    upstream.New(httpClient, cfg.RequestsPerSecond, cfg.RetryInterval),
	}
}

type petScanResponse struct {
	Pages []struct {
		A struct {
			Entries []struct {
				Title string `json:"title"`
			} `json:"*"`
		} `json:"a"`
	} `json:"*"`
}

// FilmArticleTitles lists the members of the "{year} films" category that
// pass the title predicate.
func (c *Client) FilmArticleTitles(ctx context.Context, year int) ([]string, error) {
	params := url.Values{}
	params.Set("project", "wikipedia")
	params.Set("language", "en")
	params.Set("format", "json")
	params.Set("categories", fmt.Sprintf("%d_films", year))
	params.Set("doit", "Do_it!")
	params.Set("type", "subset")

	var decoded petScanResponse
	if err := c.petScan.GetJSON(ctx, c.petScanURL, params, &decoded); err != nil {
		return nil, fmt.Errorf("PetScan listing for year %d failed: %w", year, err)
	}
	if len(decoded.Pages) == 0 {
		return nil, nil
	}

	var titles []string
	for _, entry := range decoded.Pages[0].A.Entries {
		if IsTitleCorrect(entry.Title) {
			titles = append(titles, entry.Title)
		}
	}
	return titles, nil
}

type expandTemplatesResponse struct {
	ExpandTemplates struct {
		Wikitext string `json:"wikitext"`
	} `json:"expandtemplates"`
}

// ResolveIMDBID expands the {{IMDb title}} template on the article and
// extracts the numeric id from the resulting link. Articles without the
// template resolve to (0, false, nil).
func (c *Client) ResolveIMDBID(ctx context.Context, title string) (int, bool, error) {
	params := url.Values{}
	params.Set("action", "expandtemplates")
	params.Set("text", "{{IMDb title}}")
	params.Set("prop", "wikitext")
	params.Set("title", title)
	params.Set("format", "json")

	var decoded expandTemplatesResponse
	if err := c.api.GetJSON(ctx, c.apiURL, params, &decoded); err != nil {
		return 0, false, fmt.Errorf("IMDb id resolution for %q failed: %w", title, err)
	}

	match := imdbLinkPattern.FindStringSubmatch(decoded.ExpandTemplates.Wikitext)
	if match == nil {
		return 0, false, nil
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

type parseResponse struct {
	Parse struct {
		Wikitext struct {
			Content string `json:"*"`
		} `json:"wikitext"`
	} `json:"parse"`
}

// PlotContent fetches the article's wikitext and concatenates its plot
// sections with newlines stripped. Articles without one, and fetch
// failures, yield nil.
func (c *Client) PlotContent(ctx context.Context, title string) *string {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("prop", "wikitext")
	params.Set("format", "json")

	var decoded parseResponse
	if err := c.api.GetJSON(ctx, c.apiURL, params, &decoded); err != nil {
		logging.Debug().Err(err).Str("title", title).Msg("Plot fetch failed")
		return nil
	}

	var sections strings.Builder
	for _, name := range plotSectionNames {
		sections.WriteString(extractSection(decoded.Parse.Wikitext.Content, name))
	}
	content := strings.ReplaceAll(sections.String(), "\n", "")
	if content == "" {
		return nil
	}
	return &content
}

// extractSection returns the body of a level-two wikitext section, up to
// the next level-two heading.
func extractSection(wikitext, name string) string {
	pattern := regexp.MustCompile(`(?ms)^==\s*` + regexp.QuoteMeta(name) + `\s*==\s*?\n(.*?)(?:^==[^=]|\z)`)
	match := pattern.FindStringSubmatch(wikitext)
	if match == nil {
		return ""
	}
	return match[1]
}
