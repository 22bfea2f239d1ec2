// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package database

import "strings"

// Dialect abstracts the SQL differences between the two supported engines.
// The query builder and the data-access layer take a Dialect instead of
// branching on an is_mysql flag at every call site.
type Dialect interface {
	// Name identifies the dialect ("postgresql" or "mysql").
	Name() string

	// Placeholder returns the parameter placeholder for the n-th argument
	// (1-based): $n for PostgreSQL, ? for MySQL.
	Placeholder(n int) string

	// Paginate renders the LIMIT/OFFSET tail of a query. MySQL rejects a
	// bare OFFSET, so that dialect substitutes a sentinel upper limit;
	// PostgreSQL emits OFFSET on its own.
	Paginate(limit, offset *int) string

	// Upsert renders the conflict clause appended after VALUES (...).
	// With merge, conflicting rows have their columns updated with the
	// incoming values; without it, conflicting rows are left untouched.
	Upsert(insertColumns, uniqueColumns []string, merge bool) string

	// SupportsReturning reports whether a single INSERT statement can
	// report the resulting row's columns.
	SupportsReturning() bool

	// Returning renders the RETURNING tail, or "" when unsupported.
	Returning(columns []string) string

	// UpsertReturning renders the conflict clause for an insert whose
	// primary key must be reported back even when the row already
	// existed. MySQL folds the existing id into LAST_INSERT_ID here.
	UpsertReturning(insertColumns, uniqueColumns []string, primaryKey string, merge bool) string

	// GroupWise renders the group-wise maximum (or minimum) query.
	GroupWise(spec GroupWiseSpec) string

	// BindValue converts a Go value to a driver-compatible argument.
	BindValue(v Value) Value
}

// GroupWiseSpec describes a group-wise extremum query once its filters have
// been rendered into a WHERE clause by the builder.
type GroupWiseSpec struct {
	Table           string
	Columns         []string
	MaximizedColumn string
	Groupings       []string
	Where           string // rendered filter clause without the WHERE keyword, may be empty
	Orderings       []Ordering
	Limit           *int
	Offset          *int
	IsMaximum       bool
}

// DialectFor returns the dialect inferred from a database URI. A scheme
// prefixed with "mysql" selects MySQL; anything else selects PostgreSQL.
func DialectFor(uri string) Dialect {
	if IsMySQLURI(uri) {
		return MySQL{}
	}
	return PostgreSQL{}
}

// IsMySQLURI reports whether the URI scheme selects the MySQL dialect.
func IsMySQLURI(uri string) bool {
	return strings.HasPrefix(uri, "mysql")
}

// subOrderings builds the inner ordering of a group-wise query: the
// grouping columns ascending, then the extremized column in the direction
// that puts the wanted row first within each group.
func subOrderings(spec GroupWiseSpec) []Ordering {
	orderings := make([]Ordering, 0, len(spec.Groupings)+1)
	for _, grouping := range spec.Groupings {
		orderings = append(orderings, Ordering{Column: grouping, Direction: Ascending})
	}
	direction := Ascending
	if spec.IsMaximum {
		direction = Descending
	}
	return append(orderings, Ordering{Column: spec.MaximizedColumn, Direction: direction})
}
