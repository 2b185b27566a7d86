package ledger_test

import (
	"context"
	"testing"

	"scribe/internal/ledger"
	"scribe/internal/testsupport"
)

func TestCreateAndCompleteRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "/data/controls.csv", "Controls", 3)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.Status != ledger.RunStatusRunning {
		t.Fatalf("new run status = %s, want running", run.Status)
	}
	if run.RowCount != 3 {
		t.Fatalf("row count = %d, want 3", run.RowCount)
	}

	if err := store.MarkRunCompleted(ctx, run.ID, "/data/controls_generated.csv"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	reloaded, err := store.RunByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("run by id: %v", err)
	}
	if reloaded.Status != ledger.RunStatusCompleted {
		t.Fatalf("status = %s, want completed", reloaded.Status)
	}
	if reloaded.OutputPath != "/data/controls_generated.csv" {
		t.Fatalf("output path = %q", reloaded.OutputPath)
	}
	if reloaded.SheetName != "Controls" {
		t.Fatalf("sheet name = %q, want Controls", reloaded.SheetName)
	}
	if reloaded.FinishedAt == nil {
		t.Fatal("finished_at should be set")
	}
}

func TestMarkRunFailedKeepsDetail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "in.csv", "", 1)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.MarkRunFailed(ctx, run.ID, "missing required columns: description"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	reloaded, err := store.RunByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("run by id: %v", err)
	}
	if reloaded.Status != ledger.RunStatusFailed {
		t.Fatalf("status = %s, want failed", reloaded.Status)
	}
	if reloaded.ErrorDetail != "missing required columns: description" {
		t.Fatalf("error detail = %q", reloaded.ErrorDetail)
	}
}

func TestRecordRowUpsertsAndCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "in.csv", "", 2)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	rows := []ledger.RowResult{
		{RunID: run.ID, RowIndex: 0, Title: "Firewall", Status: ledger.RowStatusGenerated, Strategy: "completion", GeneratedText: "Hosts: all | Classification: network"},
		{RunID: run.ID, RowIndex: 1, Title: "Backups", Status: ledger.RowStatusFailed, ErrorKind: "timeout", ErrorDetail: "agent polling timed out"},
	}
	for _, row := range rows {
		if err := store.RecordRow(ctx, row); err != nil {
			t.Fatalf("record row %d: %v", row.RowIndex, err)
		}
	}

	counts, err := store.CountRows(ctx, run.ID)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if counts.Generated != 1 || counts.Failed != 1 {
		t.Fatalf("counts = %+v, want 1/1", counts)
	}

	failed, err := store.FailedRows(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed rows: %v", err)
	}
	if len(failed) != 1 || failed[0].RowIndex != 1 {
		t.Fatalf("failed rows = %+v", failed)
	}

	// Retrying the failed row replaces its record.
	if err := store.RecordRow(ctx, ledger.RowResult{
		RunID:         run.ID,
		RowIndex:      1,
		Title:         "Backups",
		Status:        ledger.RowStatusGenerated,
		Strategy:      "agent",
		GeneratedText: "Hosts: backup servers | Classification: data",
	}); err != nil {
		t.Fatalf("record retried row: %v", err)
	}

	counts, err = store.CountRows(ctx, run.ID)
	if err != nil {
		t.Fatalf("count rows after retry: %v", err)
	}
	if counts.Generated != 2 || counts.Failed != 0 {
		t.Fatalf("counts after retry = %+v, want 2/0", counts)
	}

	all, err := store.RowsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("rows for run: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("rows = %d, want 2", len(all))
	}
	if all[1].GeneratedText != "Hosts: backup servers | Classification: data" {
		t.Fatalf("retried row text = %q", all[1].GeneratedText)
	}
}

func TestFindRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "in.csv", "", 0)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	found, err := store.FindRun(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("find run: %v", err)
	}
	if found == nil || found.ID != run.ID {
		t.Fatalf("find run by prefix returned %+v", found)
	}

	missing, err := store.FindRun(ctx, "zzzzzzzz")
	if err != nil {
		t.Fatalf("find missing run: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown prefix, got %+v", missing)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	first, err := store.CreateRun(ctx, "a.csv", "", 0)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := store.CreateRun(ctx, "b.csv", "", 0)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	ids := map[string]bool{runs[0].ID: true, runs[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("list missing runs: %+v", runs)
	}

	latest, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest == nil {
		t.Fatal("latest run should exist")
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited runs = %d, want 1", len(limited))
	}
}
