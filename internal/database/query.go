// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package database

import (
	"fmt"
	"strings"
)

// Value is a single SQL parameter or result cell.
type Value = any

// Record is one row of parameters or results, positionally aligned with the
// column list of the statement that produced it.
type Record []Value

// Ordering directions.
const (
	Ascending  = "ASC"
	Descending = "DESC"
)

// Ordering sorts query results by a column.
type Ordering struct {
	Column    string
	Direction string
}

// Asc returns an ascending ordering on column.
func Asc(column string) Ordering { return Ordering{Column: column, Direction: Ascending} }

// Desc returns a descending ordering on column.
func Desc(column string) Ordering { return Ordering{Column: column, Direction: Descending} }

// Filter is a single WHERE predicate. Filters combine with AND.
type Filter struct {
	Column string
	Op     string
	Values []Value
}

// Eq filters rows where column equals value.
func Eq(column string, value Value) Filter {
	return Filter{Column: column, Op: "=", Values: []Value{value}}
}

// In filters rows where column is one of values.
func In(column string, values ...Value) Filter {
	return Filter{Column: column, Op: "IN", Values: values}
}

// Between filters rows where column lies in [low, high].
func Between(column string, low, high Value) Filter {
	return Filter{Column: column, Op: "BETWEEN", Values: []Value{low, high}}
}

// QueryOptions refines a SELECT: filtering, ordering and pagination.
type QueryOptions struct {
	Filters   []Filter
	Orderings []Ordering
	Limit     *int
	Offset    *int
}

// Limit returns a pointer suitable for QueryOptions.Limit.
func Limit(n int) *int { return &n }

// Offset returns a pointer suitable for QueryOptions.Offset.
func Offset(n int) *int { return &n }

// GroupWiseQuery selects, within each group, the row holding the extremum of
// MaximizedColumn. Groups are defined by the Groupings columns. Orderings,
// Limit and Offset apply to the per-group winners, not the raw rows.
type GroupWiseQuery struct {
	Table           string
	Columns         []string
	MaximizedColumn string
	Groupings       []string
	Filters         []Filter
	Orderings       []Ordering
	Limit           *int
	Offset          *int

	// IsMaximum selects the greatest value per group; false selects the least.
	IsMaximum bool
}

// renderFilters renders filters into a single AND-joined clause, appending
// the bound values to args. argn tracks the 1-based placeholder index for
// dialects with positional placeholders.
func renderFilters(d Dialect, filters []Filter, argn *int, args *[]Value) (string, error) {
	predicates := make([]string, 0, len(filters))
	for _, filter := range filters {
		switch filter.Op {
		case "=":
			if len(filter.Values) != 1 {
				return "", fmt.Errorf("equality filter on %q requires exactly one value, got %d", filter.Column, len(filter.Values))
			}
			*argn++
			predicates = append(predicates, fmt.Sprintf("%s = %s", filter.Column, d.Placeholder(*argn)))
			*args = append(*args, d.BindValue(filter.Values[0]))
		case "IN":
			if len(filter.Values) == 0 {
				return "", fmt.Errorf("IN filter on %q requires at least one value", filter.Column)
			}
			placeholders := make([]string, len(filter.Values))
			for i, value := range filter.Values {
				*argn++
				placeholders[i] = d.Placeholder(*argn)
				*args = append(*args, d.BindValue(value))
			}
			predicates = append(predicates, fmt.Sprintf("%s IN (%s)", filter.Column, strings.Join(placeholders, ", ")))
		case "BETWEEN":
			if len(filter.Values) != 2 {
				return "", fmt.Errorf("BETWEEN filter on %q requires exactly two values, got %d", filter.Column, len(filter.Values))
			}
			*argn++
			low := d.Placeholder(*argn)
			*argn++
			high := d.Placeholder(*argn)
			predicates = append(predicates, fmt.Sprintf("%s BETWEEN %s AND %s", filter.Column, low, high))
			*args = append(*args, d.BindValue(filter.Values[0]), d.BindValue(filter.Values[1]))
		default:
			return "", fmt.Errorf("unsupported filter operator %q on column %q", filter.Op, filter.Column)
		}
	}
	return strings.Join(predicates, " AND "), nil
}

// renderOrderings renders an ORDER BY body ("col ASC, other DESC").
func renderOrderings(orderings []Ordering) string {
	parts := make([]string, len(orderings))
	for i, ordering := range orderings {
		direction := ordering.Direction
		if direction == "" {
			direction = Ascending
		}
		parts[i] = ordering.Column + " " + direction
	}
	return strings.Join(parts, ", ")
}

// BuildSelect renders a SELECT statement with its bound arguments.
func BuildSelect(d Dialect, table string, columns []string, opts QueryOptions) (string, []Value, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	var args []Value
	argn := 0
	if len(opts.Filters) > 0 {
		where, err := renderFilters(d, opts.Filters, &argn, &args)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(opts.Orderings) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(renderOrderings(opts.Orderings))
	}
	if pagination := d.Paginate(opts.Limit, opts.Offset); pagination != "" {
		sb.WriteString(" ")
		sb.WriteString(pagination)
	}
	return sb.String(), args, nil
}

// BuildInsert renders an idempotent INSERT for one record's worth of
// placeholders. With merge, rows hitting a unique constraint are updated
// with the incoming values; without it, they are left untouched.
func BuildInsert(d Dialect, table string, columns, uniqueColumns []string, merge bool) string {
	return insertPrefix(d, table, columns) + d.Upsert(columns, uniqueColumns, merge)
}

// BuildInsertReturning renders an idempotent INSERT that reports the
// resulting row's returning columns, whether the row was inserted or
// already present.
func BuildInsertReturning(d Dialect, table string, columns, uniqueColumns, returning []string, merge bool) string {
	primaryKey := ""
	if len(returning) > 0 {
		primaryKey = returning[0]
	}
	query := insertPrefix(d, table, columns) + d.UpsertReturning(columns, uniqueColumns, primaryKey, merge)
	if tail := d.Returning(returning); tail != "" {
		query += " " + tail
	}
	return query
}

func insertPrefix(d Dialect, table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// BuildDelete renders a DELETE statement with its bound arguments.
func BuildDelete(d Dialect, table string, filters []Filter) (string, []Value, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)

	var args []Value
	argn := 0
	if len(filters) > 0 {
		where, err := renderFilters(d, filters, &argn, &args)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return sb.String(), args, nil
}

// BuildGroupWise renders a group-wise extremum query with its bound arguments.
func BuildGroupWise(d Dialect, q GroupWiseQuery) (string, []Value, error) {
	var args []Value
	argn := 0
	where, err := renderFilters(d, q.Filters, &argn, &args)
	if err != nil {
		return "", nil, err
	}
	spec := GroupWiseSpec{
		Table:           q.Table,
		Columns:         q.Columns,
		MaximizedColumn: q.MaximizedColumn,
		Groupings:       q.Groupings,
		Where:           where,
		Orderings:       q.Orderings,
		Limit:           q.Limit,
		Offset:          q.Offset,
		IsMaximum:       q.IsMaximum,
	}
	return d.GroupWise(spec), args, nil
}
