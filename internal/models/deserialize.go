// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is OMDb's sentinel for a missing field. It never reaches
// the store; every occurrence becomes null during deserialization.
const NotAvailable = "N/A"

// releaseDateLayout matches OMDb's Released field, e.g. "19 Dec 1997".
const releaseDateLayout = "02 Jan 2006"

var (
	imdbIDPattern = regexp.MustCompile(`^tt(\d+)$`)

	// Hours and minutes are independently optional ("2 h", "42 min",
	// "2 h 42 min"). Commas are stripped before matching ("1,428 min").
	durationPattern = regexp.MustCompile(`^(?:(\d+) h\s*)?(?:(\d+) min)?$`)

	unratedContentRatings = map[string]struct{}{
		NotAvailable: {},
		"NOT RATED":  {},
		"UNRATED":    {},
	}
)

// OMDbFilm is the raw OMDb record as decoded from the API. Field rules and
// sentinel handling are applied by DeserializeFilm, not here.
type OMDbFilm struct {
	Title      string `json:"Title"`
	Type       string `json:"Type"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Writer     string `json:"Writer"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Poster     string `json:"Poster"`
	IMDBID     string `json:"imdbID"`
	IMDBRating string `json:"imdbRating"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// Found reports whether OMDb located a record for the query.
func (f OMDbFilm) Found() bool {
	return f.Response == "True"
}

// DeserializeFilm converts a raw OMDb record into a film entity owned by
// the given article. Malformed optional values become null; a record
// without a parseable IMDb id, title, or type is rejected.
func DeserializeFilm(raw OMDbFilm, articleID int64) (Film, error) {
	title := NormalizeValue(raw.Title)
	if title == nil {
		return Film{}, fmt.Errorf("record for article %d has no title", articleID)
	}
	filmType := NormalizeValue(raw.Type)
	if filmType == nil {
		return Film{}, fmt.Errorf("record %q has no type", *title)
	}
	imdbID, err := ParseIMDBID(raw.IMDBID)
	if err != nil {
		return Film{}, fmt.Errorf("record %q: %w", *title, err)
	}

	return Film{
		Type:          *filmType,
		Title:         *title,
		Countries:     NormalizeValue(raw.Country),
		Languages:     NormalizeValue(raw.Language),
		Duration:      ParseDuration(raw.Runtime),
		ReleaseDate:   ParseReleaseDate(raw.Released),
		ContentRating: ParseContentRating(raw.Rated),
		IMDBID:        imdbID,
		IMDBRating:    ParseRating(raw.IMDBRating),
		PosterURL:     NormalizeValue(raw.Poster),
		ArticleID:     articleID,
		Plot:          Plot{IMDBContent: NormalizeValue(raw.Plot)},
		Genres:        ParseNames(raw.Genre),
		Directors:     ParseNames(raw.Director),
		Writers:       ParseNames(raw.Writer),
		Actors:        ParseNames(raw.Actors),
	}, nil
}

// NormalizeValue maps the "N/A" sentinel and the empty string to null.
func NormalizeValue(raw string) *string {
	if raw == "" || raw == NotAvailable {
		return nil
	}
	return &raw
}

// ParseIMDBID extracts the numeric part of an id like "tt0133093",
// stripping leading zeros. A value without the tt prefix is rejected.
func ParseIMDBID(raw string) (int, error) {
	match := imdbIDPattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, fmt.Errorf("malformed IMDb id %q", raw)
	}
	id, err := strconv.Atoi(strings.TrimLeft(match[1], "0"))
	if err != nil {
		return 0, fmt.Errorf("malformed IMDb id %q", raw)
	}
	return id, nil
}

// ParseDuration parses OMDb's Runtime grammar: optional hours, optional
// comma-grouped minutes. Missing or malformed values become null.
func ParseDuration(raw string) *time.Duration {
	if raw == "" || raw == NotAvailable {
		return nil
	}
	match := durationPattern.FindStringSubmatch(strings.ReplaceAll(raw, ",", ""))
	if match == nil || (match[1] == "" && match[2] == "") {
		return nil
	}
	var total time.Duration
	if match[1] != "" {
		hours, _ := strconv.Atoi(match[1])
		total += time.Duration(hours) * time.Hour
	}
	if match[2] != "" {
		minutes, _ := strconv.Atoi(match[2])
		total += time.Duration(minutes) * time.Minute
	}
	return &total
}

// ParseReleaseDate parses OMDb's Released field. Missing or malformed
// values become null.
func ParseReleaseDate(raw string) *time.Time {
	if raw == "" || raw == NotAvailable {
		return nil
	}
	date, err := time.Parse(releaseDateLayout, raw)
	if err != nil {
		return nil
	}
	return &date
}

// ParseRating parses OMDb's imdbRating field. Missing or malformed values
// become null.
func ParseRating(raw string) *float64 {
	if raw == "" || raw == NotAvailable {
		return nil
	}
	rating, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &rating
}

// ParseContentRating nulls out the unrated markers and keeps anything else.
func ParseContentRating(raw string) *string {
	if _, unrated := unratedContentRatings[raw]; unrated || raw == "" {
		return nil
	}
	return &raw
}

// ParseNames splits a comma-separated name list, trims each element, drops
// empties and the "N/A" sentinel, and deduplicates preserving order.
func ParseNames(raw string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" || name == NotAvailable {
			continue
		}
		if _, duplicate := seen[name]; duplicate {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
