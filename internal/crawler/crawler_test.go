// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package crawler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/cinegraph/cinegraph/internal/database"
	"github.com/cinegraph/cinegraph/internal/models"
)

// fakeDB records every data-access call and emulates upsert-returning id
// allocation per table.
type fakeDB struct {
	mu       sync.Mutex
	calls    []string
	records  map[string][]database.Record
	named    map[string]map[string]int64
	next     map[string]int64
	fetches  []fetchCall
	rows     []database.Record
	total    int
	failWith error
}

type fetchCall struct {
	limit  int
	offset int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		records: make(map[string][]database.Record),
		named:   make(map[string]map[string]int64),
		next:    make(map[string]int64),
	}
}

func (f *fakeDB) Acquire(context.Context) (*sql.Conn, error) { return nil, nil }

func (f *fakeDB) Release(*sql.Conn) {}

func (f *fakeDB) Insert(_ context.Context, _ *sql.Conn, table database.Table, records []database.Record, merge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.calls = append(f.calls, fmt.Sprintf("insert:%s:merge=%v", table.Name, merge))
	f.records[table.Name] = append(f.records[table.Name], records...)
	return nil
}

func (f *fakeDB) InsertReturning(_ context.Context, _ *sql.Conn, table database.Table, records []database.Record, merge bool) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.calls = append(f.calls, fmt.Sprintf("insert_returning:%s:merge=%v", table.Name, merge))
	f.records[table.Name] = append(f.records[table.Name], records...)

	ids := make([]int64, len(records))
	byName := len(table.UniqueColumns) == 1 && table.UniqueColumns[0] == "name"
	for i, record := range records {
		if byName {
			name := record[0].(string)
			if f.named[table.Name] == nil {
				f.named[table.Name] = make(map[string]int64)
			}
			if id, ok := f.named[table.Name][name]; ok {
				ids[i] = id
				continue
			}
			f.next[table.Name]++
			f.named[table.Name][name] = f.next[table.Name]
			ids[i] = f.next[table.Name]
			continue
		}
		f.next[table.Name]++
		ids[i] = f.next[table.Name]
	}
	return ids, nil
}

func (f *fakeDB) Fetch(_ context.Context, _ *sql.Conn, table string, _ []string, opts database.QueryOptions) ([]database.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := fetchCall{}
	if opts.Limit != nil {
		call.limit = *opts.Limit
	}
	if opts.Offset != nil {
		call.offset = *opts.Offset
	}
	f.fetches = append(f.fetches, call)

	low := min(call.offset, len(f.rows))
	high := min(call.offset+call.limit, len(f.rows))
	return f.rows[low:high], nil
}

func (f *fakeDB) FetchRecordsCount(context.Context, *sql.Conn, string, []database.Filter) (int, error) {
	return f.total, nil
}

// fakeWikipedia answers from fixed tables.
type fakeWikipedia struct {
	titlesByYear map[int][]string
	listingErr   map[int]error
	imdbIDs      map[string]int
	plots        map[string]string
}

func (f *fakeWikipedia) FilmArticleTitles(_ context.Context, year int) ([]string, error) {
	if err := f.listingErr[year]; err != nil {
		return nil, err
	}
	return f.titlesByYear[year], nil
}

func (f *fakeWikipedia) ResolveIMDBID(_ context.Context, title string) (int, bool, error) {
	id, ok := f.imdbIDs[title]
	return id, ok, nil
}

func (f *fakeWikipedia) PlotContent(_ context.Context, title string) *string {
	content, ok := f.plots[title]
	if !ok {
		return nil
	}
	return &content
}

// fakeOMDB answers from a fixed table keyed by IMDb id.
type fakeOMDB struct {
	films map[int]models.OMDbFilm
}

func (f *fakeOMDB) Film(_ context.Context, imdbID, _ int) (models.OMDbFilm, error) {
	record, ok := f.films[imdbID]
	if !ok {
		return models.OMDbFilm{Response: "False", Error: "Movie not found!"}, nil
	}
	return record, nil
}

func TestArticleCrawlerUpsertsFilteredYears(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	wiki := &fakeWikipedia{
		titlesByYear: map[int][]string{
			1999: {"The Matrix", "Fight Club"},
			2000: {"Memento"},
		},
		listingErr: map[int]error{1998: errors.New("listing down")},
	}

	crawler := NewArticleCrawler(db, wiki, 2)
	if err := crawler.Run(context.Background(), 1998, 2001); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := db.records["articles"]
	if len(got) != 3 {
		t.Fatalf("articles upserted = %v, want 3 records", got)
	}
	seen := make(map[string]int)
	for _, record := range got {
		seen[record[0].(string)] = record[1].(int)
	}
	want := map[string]int{"The Matrix": 1999, "Fight Club": 1999, "Memento": 2000}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("articles = %v, want %v", seen, want)
	}
}

func TestArticleCrawlerDatabaseFailureIsFatal(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.failWith = errors.New("constraint violation")
	wiki := &fakeWikipedia{titlesByYear: map[int][]string{1999: {"The Matrix"}}}

	crawler := NewArticleCrawler(db, wiki, 10)
	if err := crawler.Run(context.Background(), 1999, 2000); err == nil {
		t.Fatal("Run() swallowed a database failure")
	}
}

func matrixRecord() models.OMDbFilm {
	return models.OMDbFilm{
		Title:      "The Matrix",
		Type:       "movie",
		Runtime:    "2 h 16 min",
		IMDBID:     "tt0133093",
		IMDBRating: "8.7",
		Released:   "31 Mar 1999",
		Rated:      "R",
		Genre:      "Action, Sci-Fi",
		Director:   "Lana Wachowski, Lilly Wachowski",
		Writer:     "Lana Wachowski",
		Actors:     "Keanu Reeves, Laurence Fishburne, Carrie-Anne Moss, Hugo Weaving",
		Plot:       "A computer hacker learns the nature of reality.",
		Response:   "True",
	}
}

func TestFilmCrawlerPersistsInDependencyOrder(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.total = 1
	db.rows = []database.Record{{int64(1), "The Matrix", int64(1999)}}
	wiki := &fakeWikipedia{
		imdbIDs: map[string]int{"The Matrix": 133093},
		plots:   map[string]string{"The Matrix": "A hacker wakes up."},
	}
	omdbClient := &fakeOMDB{films: map[int]models.OMDbFilm{133093: matrixRecord()}}

	crawler := NewFilmCrawler(db, wiki, omdbClient, 50, 10000)
	if err := crawler.Run(context.Background(), 1887, 2001); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantCalls := []string{
		"insert_returning:plots:merge=true",
		"insert_returning:films:merge=true",
		"insert_returning:genres:merge=true",
		"insert:films_genres:merge=false",
		"insert_returning:directors:merge=true",
		"insert:films_directors:merge=false",
		"insert_returning:writers:merge=true",
		"insert:films_writers:merge=false",
		"insert_returning:actors:merge=true",
		"insert:films_actors:merge=false",
	}
	if !reflect.DeepEqual(db.calls, wantCalls) {
		t.Errorf("persistence calls = %v, want %v", db.calls, wantCalls)
	}

	plots := db.records["plots"]
	if len(plots) != 1 {
		t.Fatalf("plots = %v", plots)
	}
	if imdbContent := plots[0][0].(*string); *imdbContent != "A computer hacker learns the nature of reality." {
		t.Errorf("plot imdb_content = %q", *imdbContent)
	}
	if wikiContent := plots[0][1].(*string); *wikiContent != "A hacker wakes up." {
		t.Errorf("plot wikipedia_content = %q", *wikiContent)
	}

	filmRecords := db.records["films"]
	if len(filmRecords) != 1 {
		t.Fatalf("films = %v", filmRecords)
	}
	film := filmRecords[0]
	if plotID := film[10].(*int64); *plotID != 1 {
		t.Errorf("film plot_id = %d, want the returned plot id 1", *plotID)
	}
	if articleID := film[11].(int64); articleID != 1 {
		t.Errorf("film article_id = %d, want 1", articleID)
	}

	joins := db.records["films_actors"]
	wantJoins := []database.Record{{int64(1), int64(1)}, {int64(1), int64(2)}, {int64(1), int64(3)}, {int64(1), int64(4)}}
	if !reflect.DeepEqual(joins, wantJoins) {
		t.Errorf("films_actors rows = %v, want %v", joins, wantJoins)
	}
}

func TestFilmCrawlerSharedNamesResolveToOneID(t *testing.T) {
	t.Parallel()

	second := matrixRecord()
	second.Title = "The Matrix Reloaded"
	second.IMDBID = "tt0234215"
	second.Actors = "Keanu Reeves"

	db := newFakeDB()
	db.total = 2
	db.rows = []database.Record{
		{int64(1), "The Matrix", int64(1999)},
		{int64(2), "The Matrix Reloaded", int64(2003)},
	}
	wiki := &fakeWikipedia{imdbIDs: map[string]int{
		"The Matrix":          133093,
		"The Matrix Reloaded": 234215,
	}}
	omdbClient := &fakeOMDB{films: map[int]models.OMDbFilm{
		133093: matrixRecord(),
		234215: second,
	}}

	crawler := NewFilmCrawler(db, wiki, omdbClient, 50, 10000)
	if err := crawler.Run(context.Background(), 1887, 2010); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := db.next["actors"]; got != 4 {
		t.Errorf("distinct actor ids allocated = %d, want 4", got)
	}
	joins := db.records["films_actors"]
	if len(joins) != 5 {
		t.Errorf("films_actors rows = %v, want 5", joins)
	}
}

func TestFilmCrawlerSkipsWithoutPersisting(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.total = 2
	db.rows = []database.Record{
		{int64(1), "No Template", int64(1999)},
		{int64(2), "Unknown to OMDb", int64(1999)},
	}
	wiki := &fakeWikipedia{imdbIDs: map[string]int{"Unknown to OMDb": 42}}
	omdbClient := &fakeOMDB{}

	crawler := NewFilmCrawler(db, wiki, omdbClient, 50, 10000)
	if err := crawler.Run(context.Background(), 1887, 2001); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(db.records["films"]) != 0 || len(db.records["plots"]) != 0 {
		t.Errorf("skipped articles still persisted: %v", db.records)
	}
}

func TestFilmCrawlerBatchArithmetic(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.total = 25
	wiki := &fakeWikipedia{}
	omdbClient := &fakeOMDB{}

	crawler := NewFilmCrawler(db, wiki, omdbClient, 4, 10)
	if err := crawler.Run(context.Background(), 1887, 2001); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// step 10 over 25 articles with ceil(10/4)=3 per batch
	want := []fetchCall{
		{3, 0}, {3, 3}, {3, 6}, {1, 9},
		{3, 10}, {3, 13}, {3, 16}, {1, 19},
		{3, 20}, {2, 23},
	}
	if !reflect.DeepEqual(db.fetches, want) {
		t.Errorf("fetch windows = %v, want %v", db.fetches, want)
	}
}

func TestOrchestratorRunsPhasesInOrder(t *testing.T) {
	t.Parallel()

	db := newFakeDB()
	db.rows = []database.Record{{int64(1), "The Matrix", int64(1999)}}
	wiki := &fakeWikipedia{
		titlesByYear: map[int][]string{1999: {"The Matrix"}},
		imdbIDs:      map[string]int{"The Matrix": 133093},
	}
	omdbClient := &fakeOMDB{films: map[int]models.OMDbFilm{133093: matrixRecord()}}

	orchestrator := NewOrchestrator(db, wiki, omdbClient, Config{
		StartYear:      1999,
		StopYear:       2000,
		MaxConnections: 4,
		Step:           100,
	})
	db.total = 1
	if err := orchestrator.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(db.records["articles"]) != 1 {
		t.Errorf("articles = %v", db.records["articles"])
	}
	if len(db.records["films"]) != 1 {
		t.Errorf("films = %v", db.records["films"])
	}
}
