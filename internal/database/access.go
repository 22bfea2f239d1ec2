// Cinegraph - Wikipedia and IMDb Film Catalog Crawler
// Copyright 2026 Cinegraph Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinegraph/cinegraph

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cinegraph/cinegraph/internal/logging"
	"github.com/cinegraph/cinegraph/internal/metrics"
)

// Execute runs a single statement on the given connection.
func (db *DB) Execute(ctx context.Context, conn *sql.Conn, query string, args ...Value) error {
	defer observe("execute", time.Now())
	if _, err := conn.ExecContext(ctx, query, db.bindRecord(args)...); err != nil {
		return fmt.Errorf("statement failed: %w", err)
	}
	return nil
}

// ExecuteMany runs the same statement once per record over a prepared
// statement on the given connection.
func (db *DB) ExecuteMany(ctx context.Context, conn *sql.Conn, query string, records []Record) error {
	defer observe("execute", time.Now())
	return db.executeMany(ctx, conn, query, records)
}

func (db *DB) executeMany(ctx context.Context, conn *sql.Conn, query string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeStmt(stmt)

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, db.bindRecord(record)...); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	return nil
}

// Insert upserts records into the table. With merge, rows hitting the
// table's natural key are updated with the incoming values; without it they
// are left untouched. Records carry the table's insert columns in order.
func (db *DB) Insert(ctx context.Context, conn *sql.Conn, table Table, records []Record, merge bool) error {
	if len(records) == 0 {
		return nil
	}
	defer observe("insert", time.Now())
	metrics.DBBatchSize.Observe(float64(len(records)))

	query := BuildInsert(db.dialect, table.Name, table.InsertColumns(), table.UniqueColumns, merge)
	return db.executeMany(ctx, conn, query, records)
}

// InsertReturning upserts records and returns each resulting row's primary
// key, positionally aligned with records, whether the row was inserted or
// already present.
func (db *DB) InsertReturning(ctx context.Context, conn *sql.Conn, table Table, records []Record, merge bool) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	defer observe("insert_returning", time.Now())
	metrics.DBBatchSize.Observe(float64(len(records)))

	query := BuildInsertReturning(db.dialect, table.Name, table.InsertColumns(),
		table.UniqueColumns, []string{table.PrimaryKey}, merge)

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeStmt(stmt)

	ids := make([]int64, 0, len(records))
	for _, record := range records {
		args := db.bindRecord(record)
		if db.dialect.SupportsReturning() {
			var id int64
			if err := stmt.QueryRowContext(ctx, args...).Scan(&id); err != nil {
				return nil, fmt.Errorf("insert into %s returned no id: %w", table.Name, err)
			}
			ids = append(ids, id)
			continue
		}
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("insert into %s failed: %w", table.Name, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert into %s reported no id: %w", table.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Fetch returns the rows selected from the table.
func (db *DB) Fetch(ctx context.Context, conn *sql.Conn, table string, columns []string, opts QueryOptions) ([]Record, error) {
	defer observe("fetch", time.Now())

	query, args, err := BuildSelect(db.dialect, table, columns, opts)
	if err != nil {
		return nil, err
	}
	return db.fetchAll(ctx, conn, query, args)
}

// FetchRow returns the first row selected from the table, or nil when
// nothing matches.
func (db *DB) FetchRow(ctx context.Context, conn *sql.Conn, table string, columns []string, opts QueryOptions) (Record, error) {
	opts.Limit = Limit(1)
	records, err := db.Fetch(ctx, conn, table, columns, opts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FetchRecordsCount returns the number of rows matching the filters.
func (db *DB) FetchRecordsCount(ctx context.Context, conn *sql.Conn, table string, filters []Filter) (int, error) {
	defer observe("fetch", time.Now())

	query, args, err := BuildSelect(db.dialect, table, []string{"COUNT(*)"}, QueryOptions{Filters: filters})
	if err != nil {
		return 0, err
	}
	return db.fetchCount(ctx, conn, query, args)
}

// FetchMaxColumnValue returns the greatest value of the column among rows
// matching the filters, or nil when no rows match.
func (db *DB) FetchMaxColumnValue(ctx context.Context, conn *sql.Conn, table, column string, filters []Filter) (Value, error) {
	defer observe("fetch", time.Now())

	query, args, err := BuildSelect(db.dialect, table,
		[]string{fmt.Sprintf("MAX(%s)", column)}, QueryOptions{Filters: filters})
	if err != nil {
		return nil, err
	}
	return db.fetchScalar(ctx, conn, query, args)
}

// FetchGroupWise returns, within each group, the row holding the extremum
// of the query's maximized column.
func (db *DB) FetchGroupWise(ctx context.Context, conn *sql.Conn, q GroupWiseQuery) ([]Record, error) {
	defer observe("fetch", time.Now())

	query, args, err := BuildGroupWise(db.dialect, q)
	if err != nil {
		return nil, err
	}
	return db.fetchAll(ctx, conn, query, args)
}

// FetchGroupWiseRecordsCount returns the number of per-group winners.
func (db *DB) FetchGroupWiseRecordsCount(ctx context.Context, conn *sql.Conn, q GroupWiseQuery) (int, error) {
	defer observe("fetch", time.Now())

	inner, args, err := BuildGroupWise(db.dialect, q)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS q", inner)
	return db.fetchCount(ctx, conn, query, args)
}

// FetchGroupWiseMaxColumnValue returns the greatest value of the column
// among per-group winners, or nil when there are none.
func (db *DB) FetchGroupWiseMaxColumnValue(ctx context.Context, conn *sql.Conn, q GroupWiseQuery, column string) (Value, error) {
	defer observe("fetch", time.Now())

	inner, args, err := BuildGroupWise(db.dialect, q)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT MAX(%s) FROM (%s) AS q", column, inner)
	return db.fetchScalar(ctx, conn, query, args)
}

// Delete removes the rows matching the filters.
func (db *DB) Delete(ctx context.Context, conn *sql.Conn, table string, filters []Filter) error {
	defer observe("delete", time.Now())

	query, args, err := BuildDelete(db.dialect, table, filters)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s failed: %w", table, err)
	}
	return nil
}

func (db *DB) fetchAll(ctx context.Context, conn *sql.Conn, query string, args []Value) ([]Record, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer closeRows(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to describe result: %w", err)
	}

	var records []Record
	for rows.Next() {
		record := make(Record, len(columns))
		pointers := make([]any, len(columns))
		for i := range record {
			pointers[i] = &record[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, normalizeRecord(record))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return records, nil
}

func (db *DB) fetchCount(ctx context.Context, conn *sql.Conn, query string, args []Value) (int, error) {
	var count int
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

func (db *DB) fetchScalar(ctx context.Context, conn *sql.Conn, query string, args []Value) (Value, error) {
	var value Value
	err := conn.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scalar query failed: %w", err)
	}
	return normalizeValue(value), nil
}

// bindRecord applies the dialect's value conversions to a full record.
func (db *DB) bindRecord(record Record) []any {
	bound := make([]any, len(record))
	for i, value := range record {
		bound[i] = db.dialect.BindValue(value)
	}
	return bound
}

// normalizeRecord maps driver-specific cell representations onto plain Go
// values, so callers see the same shapes from both engines.
func normalizeRecord(record Record) Record {
	for i, value := range record {
		record[i] = normalizeValue(value)
	}
	return record
}

// normalizeValue converts the []byte cells the MySQL driver produces for
// text columns into strings.
func normalizeValue(value Value) Value {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}

func observe(operation string, start time.Time) {
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close rows")
	}
}

func closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close statement")
	}
}
