package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, input_path, sheet_name, output_path, status, row_count, error_detail, created_at, updated_at, finished_at"

// CreateRun records a new batch invocation and returns it. The sheet name is
// kept so retries read the same worksheet the run was made against.
func (s *Store) CreateRun(ctx context.Context, inputPath, sheetName string, rowCount int) (*Run, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (id, input_path, sheet_name, output_path, status, row_count, created_at, updated_at)
         VALUES (?, ?, ?, '', ?, ?, ?, ?)`,
		id,
		inputPath,
		sheetName,
		RunStatusRunning,
		rowCount,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.RunByID(ctx, id)
}

// MarkRunCompleted finalizes a run after the output file was written.
func (s *Store) MarkRunCompleted(ctx context.Context, id, outputPath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, output_path = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		RunStatusCompleted,
		outputPath,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	return nil
}

// MarkRunFailed finalizes a run that aborted before writing output.
func (s *Store) MarkRunFailed(ctx context.Context, id, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, error_detail = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		RunStatusFailed,
		nullableString(detail),
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	return nil
}

// RunByID fetches a run by exact identifier. Missing runs return nil.
func (s *Store) RunByID(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRun resolves a run by full identifier or unique prefix.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	if run, err := s.RunByID(ctx, idOrPrefix); err != nil || run != nil {
		return run, err
	}

	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY created_at DESC LIMIT 2`,
		idOrPrefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", idOrPrefix)
	}
}

// LatestRun returns the most recently created run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first, up to limit (zero means all).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ClearRuns deletes all run history. Row records cascade.
func (s *Store) ClearRuns(ctx context.Context) error {
	if err := s.execWithRetry(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		inputPath   string
		sheetName   sql.NullString
		outputPath  sql.NullString
		statusStr   string
		rowCount    sql.NullInt64
		errorDetail sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
		finishedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&inputPath,
		&sheetName,
		&outputPath,
		&statusStr,
		&rowCount,
		&errorDetail,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:          id,
		InputPath:   inputPath,
		SheetName:   sheetName.String,
		OutputPath:  outputPath.String,
		Status:      RunStatus(statusStr),
		RowCount:    int(rowCount.Int64),
		ErrorDetail: errorDetail.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
