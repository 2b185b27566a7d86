package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const rowColumns = "run_id, row_index, title, status, strategy, generated_text, error_kind, error_detail, updated_at"

// RecordRow upserts the outcome for one spreadsheet row. Rows are keyed by
// (run id, row index) so a retried row simply replaces its earlier record.
func (s *Store) RecordRow(ctx context.Context, result RowResult) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(
		ctx,
		`INSERT INTO run_rows (run_id, row_index, title, status, strategy, generated_text, error_kind, error_detail, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (run_id, row_index) DO UPDATE SET
             title = excluded.title,
             status = excluded.status,
             strategy = excluded.strategy,
             generated_text = excluded.generated_text,
             error_kind = excluded.error_kind,
             error_detail = excluded.error_detail,
             updated_at = excluded.updated_at`,
		result.RunID,
		result.RowIndex,
		result.Title,
		result.Status,
		nullableString(result.Strategy),
		nullableString(result.GeneratedText),
		nullableString(result.ErrorKind),
		nullableString(result.ErrorDetail),
		now,
	)
	if err != nil {
		return fmt.Errorf("record row: %w", err)
	}
	return nil
}

// RowsForRun returns every recorded row for a run ordered by row index.
func (s *Store) RowsForRun(ctx context.Context, runID string) ([]RowResult, error) {
	return s.queryRows(
		ctx,
		`SELECT `+rowColumns+` FROM run_rows WHERE run_id = ? ORDER BY row_index`,
		runID,
	)
}

// FailedRows returns the rows of a run that ended in failure, ordered by
// row index.
func (s *Store) FailedRows(ctx context.Context, runID string) ([]RowResult, error) {
	return s.queryRows(
		ctx,
		`SELECT `+rowColumns+` FROM run_rows WHERE run_id = ? AND status = ? ORDER BY row_index`,
		runID,
		RowStatusFailed,
	)
}

// CountRows aggregates per-status totals for a run.
func (s *Store) CountRows(ctx context.Context, runID string) (RowCounts, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM run_rows WHERE run_id = ? GROUP BY status`,
		runID,
	)
	if err != nil {
		return RowCounts{}, fmt.Errorf("count rows: %w", err)
	}
	defer rows.Close()

	var counts RowCounts
	for rows.Next() {
		var status string
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return RowCounts{}, fmt.Errorf("scan row count: %w", err)
		}
		switch RowStatus(status) {
		case RowStatusGenerated:
			counts.Generated = total
		case RowStatusFailed:
			counts.Failed = total
		}
	}
	if err := rows.Err(); err != nil {
		return RowCounts{}, fmt.Errorf("count rows: %w", err)
	}
	return counts, nil
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]RowResult, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var results []RowResult
	for rows.Next() {
		result, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return results, nil
}

func scanRow(scanner interface{ Scan(dest ...any) error }) (RowResult, error) {
	var (
		runID       string
		rowIndex    int
		title       sql.NullString
		statusStr   string
		strategy    sql.NullString
		generated   sql.NullString
		errorKind   sql.NullString
		errorDetail sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&runID,
		&rowIndex,
		&title,
		&statusStr,
		&strategy,
		&generated,
		&errorKind,
		&errorDetail,
		&updatedRaw,
	); err != nil {
		return RowResult{}, err
	}

	result := RowResult{
		RunID:         runID,
		RowIndex:      rowIndex,
		Title:         title.String,
		Status:        RowStatus(statusStr),
		Strategy:      strategy.String,
		GeneratedText: generated.String,
		ErrorKind:     errorKind.String,
		ErrorDetail:   errorDetail.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		result.UpdatedAt = updated
	}
	return result, nil
}
