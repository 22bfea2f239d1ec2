// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

// Package models defines the catalog entities, their table descriptors, and
// the deserialization of raw OMDb records into film entities.
package models

import (
	"time"

	"github.com/cinegraph/cinegraph/internal/database"
)

// Film types accepted by the films.type column.
const (
	TypeMovie   = "movie"
	TypeEpisode = "episode"
)

// Article is a Wikipedia article whose category membership marks it as a
// film released in a specific year. Unique by (title, year).
type Article struct {
	ID    int64
	Title string
	Year  int
}

// Record returns the article's insert-column values.
func (a Article) Record() database.Record {
	return database.Record{a.Title, a.Year}
}

// Plot holds a film's plot text from either source. Both fields may be
// null; a row with both null carries no information but is legal.
type Plot struct {
	ID               int64
	IMDBContent      *string
	WikipediaContent *string
}

// Record returns the plot's insert-column values.
func (p Plot) Record() database.Record {
	return database.Record{p.IMDBContent, p.WikipediaContent}
}

// Film joins one article to one IMDb record plus its related people,
// genres, and plot. The related-name slices preserve upstream order and
// contain no duplicates.
type Film struct {
	ID            int64
	Type          string
	Title         string
	Countries     *string
	Languages     *string
	Duration      *time.Duration
	ReleaseDate   *time.Time
	ContentRating *string
	IMDBID        int
	IMDBRating    *float64
	PosterURL     *string
	PlotID        *int64
	ArticleID     int64

	Plot      Plot
	Genres    []string
	Directors []string
	Writers   []string
	Actors    []string
}

// Record returns the film's insert-column values in Films column order.
func (f Film) Record() database.Record {
	return database.Record{
		f.Type, f.Title, f.Countries, f.Languages, f.Duration,
		f.ReleaseDate, f.ContentRating, f.IMDBID, f.IMDBRating,
		f.PosterURL, f.PlotID, f.ArticleID,
	}
}

// Table descriptors consumed by the query builder. The DDL itself is
// managed outside the crawler; these mirror the column contract.
var (
	Articles = database.Table{
		Name:          "articles",
		Columns:       []string{"id", "title", "year"},
		UniqueColumns: []string{"title", "year"},
		PrimaryKey:    "id",
	}

	Films = database.Table{
		Name: "films",
		Columns: []string{
			"id", "type", "title", "countries", "languages", "duration",
			"release_date", "content_rating", "imdb_id", "imdb_rating",
			"poster_url", "plot_id", "article_id",
		},
		UniqueColumns: []string{"imdb_id"},
		PrimaryKey:    "id",
	}

	Plots = database.Table{
		Name:       "plots",
		Columns:    []string{"id", "imdb_content", "wikipedia_content"},
		PrimaryKey: "id",
	}

	Genres    = nameTable("genres")
	Directors = nameTable("directors")
	Writers   = nameTable("writers")
	Actors    = nameTable("actors")

	FilmsGenres    = joinTable("films_genres", "genre_id")
	FilmsDirectors = joinTable("films_directors", "director_id")
	FilmsWriters   = joinTable("films_writers", "writer_id")
	FilmsActors    = joinTable("films_actors", "actor_id")
)

// nameTable describes the shared shape of the name-unique entity tables.
func nameTable(name string) database.Table {
	return database.Table{
		Name:          name,
		Columns:       []string{"id", "name"},
		UniqueColumns: []string{"name"},
		PrimaryKey:    "id",
	}
}

// joinTable describes a film association table keyed by (film_id, related).
func joinTable(name, related string) database.Table {
	return database.Table{
		Name:    name,
		Columns: []string{"film_id", related},
	}
}
