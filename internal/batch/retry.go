package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/sheet"
)

// Retry reprocesses a previous run, reusing the ledger-recorded text for rows
// that already generated and re-requesting only the rows that failed or were
// never recorded. The result is written as a fresh run over the same input.
func (p *Processor) Retry(ctx context.Context, idOrPrefix string) (*Summary, error) {
	release, err := p.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()

	prior, err := p.store.FindRun(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, services.Wrap(services.ErrNotFound, "batch", "retry", fmt.Sprintf("run %q not found", idOrPrefix), nil)
	}

	if err := p.cfg.RequireCredentials(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "credentials", "", err)
	}
	gen, err := p.newGenerator()
	if err != nil {
		return nil, err
	}

	table, err := sheet.ReadSheet(prior.InputPath, prior.SheetName)
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns("title", "description"); err != nil {
		return nil, err
	}
	if prior.RowCount > 0 && len(table.Rows) != prior.RowCount {
		return nil, services.Wrap(
			services.ErrValidation,
			"batch",
			"retry",
			fmt.Sprintf("input %s now has %d rows, run %s recorded %d; rerun from scratch instead", prior.InputPath, len(table.Rows), shortID(prior.ID), prior.RowCount),
			nil,
		)
	}

	priorRows, err := p.store.RowsForRun(ctx, prior.ID)
	if err != nil {
		return nil, err
	}
	recorded := make(map[int]ledger.RowResult, len(priorRows))
	for _, row := range priorRows {
		recorded[row.RowIndex] = row
	}

	run, err := p.store.CreateRun(ctx, prior.InputPath, prior.SheetName, len(table.Rows))
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.ID)
	runLogger := logging.WithContext(ctx, p.logger)
	runLogger.Info("retry started",
		logging.String("prior_run_id", prior.ID),
		logging.Int("rows", len(table.Rows)))

	values := make([]string, len(table.Rows))
	var failed, reused int
	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			detail := fmt.Sprintf("canceled at row %d/%d: %v", i+1, len(table.Rows), err)
			if markErr := p.store.MarkRunFailed(context.Background(), run.ID, detail); markErr != nil {
				runLogger.Warn("mark run failed", logging.Error(markErr))
			}
			return nil, err
		}
		if row, ok := recorded[i]; ok && row.Status == ledger.RowStatusGenerated {
			values[i] = row.GeneratedText
			reused++
			row.RunID = run.ID
			if recordErr := p.store.RecordRow(ctx, row); recordErr != nil {
				runLogger.Warn("record reused row", logging.Int("row", i+1), logging.Error(recordErr))
			}
			continue
		}
		text, rowErr := p.processRow(ctx, gen, run.ID, table, i)
		if rowErr != nil {
			failed++
			text = "Error generating description: " + rowErr.Error()
		}
		values[i] = text
		p.delay()
	}

	outputPath := strings.TrimSpace(prior.OutputPath)
	if outputPath == "" {
		outputPath = sheet.DerivedOutputPath(prior.InputPath)
	}
	if err := table.AppendColumn(OutputColumn, values); err != nil {
		if markErr := p.store.MarkRunFailed(ctx, run.ID, err.Error()); markErr != nil {
			runLogger.Warn("mark run failed", logging.Error(markErr))
		}
		return nil, err
	}
	writtenPath, err := sheet.Write(outputPath, table)
	if err != nil {
		if markErr := p.store.MarkRunFailed(ctx, run.ID, err.Error()); markErr != nil {
			runLogger.Warn("mark run failed", logging.Error(markErr))
		}
		return nil, err
	}
	if err := p.store.MarkRunCompleted(ctx, run.ID, writtenPath); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:      run.ID,
		RowCount:   len(table.Rows),
		Generated:  len(table.Rows) - failed,
		Failed:     failed,
		OutputPath: writtenPath,
		Duration:   time.Since(started),
	}
	runLogger.Info("retry completed",
		logging.Int("reused", reused),
		logging.Int("regenerated", len(table.Rows)-reused),
		logging.Int("failed", summary.Failed),
		logging.String("output", writtenPath))
	if err := p.notifier.NotifyRunCompleted(ctx, summary.Generated, summary.Failed, writtenPath, summary.Duration); err != nil {
		runLogger.Warn("run-complete notification failed", logging.Error(err))
	}
	return summary, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
