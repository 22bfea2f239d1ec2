// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package database

import (
	"fmt"
	"strings"
)

// PostgreSQL renders queries for the pgx driver.
type PostgreSQL struct{}

func (PostgreSQL) Name() string { return "postgresql" }

func (PostgreSQL) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgreSQL) Paginate(limit, offset *int) string {
	var parts []string
	if limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *limit))
	}
	if offset != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *offset))
	}
	return strings.Join(parts, " ")
}

func (PostgreSQL) Upsert(insertColumns, uniqueColumns []string, merge bool) string {
	switch {
	case merge && len(uniqueColumns) > 0:
		assignments := make([]string, len(insertColumns))
		for i, column := range insertColumns {
			assignments[i] = fmt.Sprintf("%s = EXCLUDED.%s", column, column)
		}
		return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(uniqueColumns, ", "), strings.Join(assignments, ", "))
	case len(uniqueColumns) > 0:
		return fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(uniqueColumns, ", "))
	case !merge:
		// No explicit constraint target: tolerate any unique violation.
		return " ON CONFLICT DO NOTHING"
	default:
		return ""
	}
}

func (PostgreSQL) SupportsReturning() bool { return true }

func (PostgreSQL) Returning(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	return "RETURNING " + strings.Join(columns, ", ")
}

func (d PostgreSQL) UpsertReturning(insertColumns, uniqueColumns []string, primaryKey string, merge bool) string {
	return d.Upsert(insertColumns, uniqueColumns, merge)
}

// GroupWise selects each group's extremum row via DISTINCT ON: ordering by
// the grouping columns then by the extremized column leaves the winner first
// within each group, and DISTINCT ON keeps only that first row.
func (d PostgreSQL) GroupWise(spec GroupWiseSpec) string {
	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ON (")
	sb.WriteString(strings.Join(spec.Groupings, ", "))
	sb.WriteString(") ")
	sb.WriteString(strings.Join(spec.Columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(spec.Table)
	if spec.Where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(spec.Where)
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(renderOrderings(subOrderings(spec)))
	if pagination := d.Paginate(spec.Limit, spec.Offset); pagination != "" {
		sb.WriteString(" ")
		sb.WriteString(pagination)
	}
	if len(spec.Orderings) == 0 {
		return sb.String()
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS winners ORDER BY %s",
		sb.String(), renderOrderings(spec.Orderings))
}

func (PostgreSQL) BindValue(v Value) Value { return v }
