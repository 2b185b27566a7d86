package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/generate"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/services"
	"scribe/internal/services/llm"
	"scribe/internal/sheet"
)

// OutputColumn is the name of the column the generated descriptions land in.
const OutputColumn = "AI generated description"

const lockFileName = "scribe.lock"

// Summary reports the outcome of a completed batch run.
type Summary struct {
	RunID      string
	RowCount   int
	Generated  int
	Failed     int
	OutputPath string
	Duration   time.Duration
}

// Processor drives the sequential row loop: read table, generate one
// description per row, write the augmented table.
type Processor struct {
	cfg      *config.Config
	store    *ledger.Store
	notifier notifications.Service
	logger   *slog.Logger

	sleep      func(time.Duration)
	clientOpts []llm.Option
}

// Option customizes a Processor.
type Option func(*Processor)

// WithSleeper overrides how the inter-row delay is performed (useful for
// tests).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(p *Processor) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithClientOptions forwards options to the API client the processor builds.
func WithClientOptions(opts ...llm.Option) Option {
	return func(p *Processor) {
		p.clientOpts = append(p.clientOpts, opts...)
	}
}

// New constructs a Processor. The ledger store is required; notifier and
// logger fall back to no-ops.
func New(cfg *config.Config, store *ledger.Store, notifier notifications.Service, logger *slog.Logger, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("batch: config required")
	}
	if store == nil {
		return nil, fmt.Errorf("batch: ledger store required")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	processor := &Processor{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "batch"),
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(processor)
	}
	return processor, nil
}

// Request describes one batch invocation.
type Request struct {
	InputPath  string
	OutputPath string // empty derives "{stem}_generated{ext}" from the input
	SheetName  string // workbook sheet, empty selects the first
}

// Run processes every row of the input table exactly once, in order. Row
// failures become cell text; only run-level preconditions (lock, credentials,
// template, table, columns) abort the whole run.
func (p *Processor) Run(ctx context.Context, req Request) (*Summary, error) {
	release, err := p.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()

	if err := p.cfg.RequireCredentials(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "credentials", "", err)
	}

	gen, err := p.newGenerator()
	if err != nil {
		return nil, err
	}

	table, err := sheet.ReadSheet(req.InputPath, req.SheetName)
	if err != nil {
		return nil, err
	}
	if err := table.RequireColumns("title", "description"); err != nil {
		return nil, err
	}

	outputPath := strings.TrimSpace(req.OutputPath)
	if outputPath == "" {
		outputPath = sheet.DerivedOutputPath(req.InputPath)
	}

	run, err := p.store.CreateRun(ctx, req.InputPath, req.SheetName, len(table.Rows))
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.ID)
	runLogger := logging.WithContext(ctx, p.logger)
	runLogger.Info("run started",
		logging.String("input", req.InputPath),
		logging.Int("rows", len(table.Rows)))
	if err := p.notifier.NotifyRunStarted(ctx, req.InputPath, len(table.Rows)); err != nil {
		runLogger.Warn("run-start notification failed", logging.Error(err))
	}

	values := make([]string, len(table.Rows))
	var failed int
	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			detail := fmt.Sprintf("canceled at row %d/%d: %v", i+1, len(table.Rows), err)
			if markErr := p.store.MarkRunFailed(context.Background(), run.ID, detail); markErr != nil {
				runLogger.Warn("mark run failed", logging.Error(markErr))
			}
			return nil, err
		}
		text, rowErr := p.processRow(ctx, gen, run.ID, table, i)
		if rowErr != nil {
			failed++
			text = "Error generating description: " + rowErr.Error()
		}
		values[i] = text
		p.delay()
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
	runLogger.Info("run completed",
		logging.Int("generated", summary.Generated),
		logging.Int("failed", summary.Failed),
		logging.String("output", writtenPath),
		logging.Duration("duration", summary.Duration))
	if err := p.notifier.NotifyRunCompleted(ctx, summary.Generated, summary.Failed, writtenPath, summary.Duration); err != nil {
		runLogger.Warn("run-complete notification failed", logging.Error(err))
	}
	return summary, nil
}

// processRow generates one row's description and records the outcome. The
// returned error is row-local; callers convert it to cell text and continue.
func (p *Processor) processRow(ctx context.Context, gen *generate.Generator, runID string, table *sheet.Table, index int) (string, error) {
	title := table.Value(index, "title")
	description := table.Value(index, "description")
	rowCtx := services.WithRow(ctx, index+1)
	rowLogger := logging.WithContext(rowCtx, p.logger)

	rowLogger.Info("generating description",
		logging.Int("total", len(table.Rows)),
		logging.String("title", truncate(title, 60)))

	result, err := gen.Describe(rowCtx, generate.Request{Title: title, Description: description})
	record := ledger.RowResult{
		RunID:    runID,
		RowIndex: index,
		Title:    title,
	}
	if err != nil {
		record.Status = ledger.RowStatusFailed
		record.ErrorKind = services.FailureKind(err)
		record.ErrorDetail = err.Error()
		rowLogger.Warn("row generation failed",
			logging.String("kind", record.ErrorKind),
			logging.Error(err))
	} else {
		record.Status = ledger.RowStatusGenerated
		record.GeneratedText = result.Text
		record.Strategy = result.Strategy
	}
	if recordErr := p.store.RecordRow(ctx, record); recordErr != nil {
		rowLogger.Warn("record row", logging.Error(recordErr))
	}
	return result.Text, err
}

func (p *Processor) newGenerator() (*generate.Generator, error) {
	template, err := generate.LoadTemplate(p.cfg.Generation.TemplatePath)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(llm.Config{
		APIKey:              p.cfg.API.APIKey,
		BaseURL:             p.cfg.API.BaseURL,
		Model:               p.cfg.API.Model,
		Repository:          p.cfg.API.Repository,
		TimeoutSeconds:      p.cfg.API.RequestTimeoutSeconds,
		PollIntervalSeconds: p.cfg.API.AgentPollIntervalSeconds,
		PollMaxAttempts:     p.cfg.API.AgentPollMaxAttempts,
	}, p.clientOpts...)
	strategies, err := generate.Strategies(client, p.cfg.Generation.Strategies)
	if err != nil {
		return nil, err
	}
	return generate.New(template, strategies, p.logger)
}

// acquireLock serializes batch runs against the shared data directory.
func (p *Processor) acquireLock() (func(), error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(p.cfg.Paths.DataDir, lockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("batch: acquire run lock: %w", err)
	}
	if !acquired {
		return nil, services.Wrap(
			services.ErrValidation,
			"batch",
			"lock",
			"another scribe run is already in progress for this data directory",
			nil,
		)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("release run lock", logging.Error(err))
		}
	}, nil
}

// delay applies the fixed inter-row pause. It runs after every row, success
// or failure, matching the one-request-at-a-time pacing contract.
func (p *Processor) delay() {
	delay := time.Duration(p.cfg.Generation.RowDelaySeconds) * time.Second
	if delay > 0 {
		p.sleep(delay)
	}
}

func truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit]) + "..."
}
