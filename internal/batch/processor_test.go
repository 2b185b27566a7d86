package batch_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/batch"
	"scribe/internal/config"
	"scribe/internal/ledger"
	"scribe/internal/sheet"
	"scribe/internal/testsupport"
)

// completionServer answers chat completions with canned text and records how
// many requests it saw.
type completionServer struct {
	mu       sync.Mutex
	requests int
	respond  func(prompt string) (string, int)
}

func (s *completionServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read request: %v", err)
		}
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt := ""
		for _, msg := range payload.Messages {
			if msg.Role == "user" {
				prompt = msg.Content
			}
		}

		s.mu.Lock()
		s.requests++
		s.mu.Unlock()

		text, status := "Hosts: all | Classification: generic", http.StatusOK
		if s.respond != nil {
			text, status = s.respond(prompt)
		}
		if status != http.StatusOK {
			http.Error(w, text, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": text}},
			},
		})
	}
}

func (s *completionServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

type processorFixture struct {
	cfg    *config.Config
	store  *ledger.Store
	proc   *batch.Processor
	delays []time.Duration
}

func newFixture(t *testing.T, baseURL string, opts ...testsupport.ConfigOption) *processorFixture {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithBaseURL(baseURL),
		testsupport.WithStrategies("completion"),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenLedger(t, cfg)

	fixture := &processorFixture{cfg: cfg, store: store}
	proc, err := batch.New(cfg, store, nil, nil, batch.WithSleeper(func(d time.Duration) {
		fixture.delays = append(fixture.delays, d)
	}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	fixture.proc = proc
	return fixture
}

func TestRunPreservesRowCountAndOrder(t *testing.T) {
	server := &completionServer{
		respond: func(prompt string) (string, int) {
			// Echo a marker derived from the row title so order is checkable.
			for _, title := range []string{"Alpha", "Bravo", "Charlie"} {
				if strings.Contains(prompt, "Title: "+title) {
					return "Hosts: " + title + " | Classification: test", http.StatusOK
				}
			}
			return "Hosts: unknown | Classification: test", http.StatusOK
		},
	}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	input := testsupport.ControlsCSV(t, t.TempDir(), [][]string{
		{"Alpha", "first control"},
		{"Bravo", "second control"},
		{"Charlie", "third control"},
	})

	summary, err := fixture.proc.Run(context.Background(), batch.Request{InputPath: input})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RowCount != 3 || summary.Failed != 0 || summary.Generated != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.OutputPath != sheet.DerivedOutputPath(input) {
		t.Fatalf("output path = %q", summary.OutputPath)
	}

	output, err := sheet.Read(summary.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(output.Rows) != 3 {
		t.Fatalf("output rows = %d, want 3", len(output.Rows))
	}
	for i, title := range []string{"Alpha", "Bravo", "Charlie"} {
		got := output.Value(i, batch.OutputColumn)
		want := "Hosts: " + title + " | Classification: test"
		if got != want {
			t.Fatalf("row %d output = %q, want %q", i, got, want)
		}
	}
	if len(fixture.delays) != 3 {
		t.Fatalf("delay count = %d, want one per row", len(fixture.delays))
	}
	for _, delay := range fixture.delays {
		if delay != time.Second {
			t.Fatalf("delay = %s, want 1s", delay)
		}
	}

	run, err := fixture.store.RunByID(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("run by id: %v", err)
	}
	if run.Status != ledger.RunStatusCompleted {
		t.Fatalf("run status = %s", run.Status)
	}
}

func TestRunFailsBeforeAPICallWithoutCredentials(t *testing.T) {
	server := &completionServer{}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL, func(cfg *config.Config) {
		cfg.API.APIKey = ""
	})
	input := testsupport.ControlsCSV(t, t.TempDir(), [][]string{{"Alpha", "first"}})

	_, err := fixture.proc.Run(context.Background(), batch.Request{InputPath: input})
	if err == nil {
		t.Fatal("expected credential failure")
	}
	if !strings.Contains(err.Error(), "CURSOR_API_KEY") {
		t.Fatalf("error should name CURSOR_API_KEY, got %q", err.Error())
	}
	if server.count() != 0 {
		t.Fatalf("expected no API calls, saw %d", server.count())
	}
}

func TestRunFailsOnMissingColumns(t *testing.T) {
	server := &completionServer{}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	input := testsupport.WriteCSV(t, filepath.Join(t.TempDir(), "bad.csv"),
		[]string{"name", "notes"},
		[][]string{{"Alpha", "first"}},
	)

	_, err := fixture.proc.Run(context.Background(), batch.Request{InputPath: input})
	if err == nil {
		t.Fatal("expected missing-column failure")
	}
	for _, column := range []string{"title", "description"} {
		if !strings.Contains(err.Error(), column) {
			t.Fatalf("error should list %q, got %q", column, err.Error())
		}
	}
	if server.count() != 0 {
		t.Fatalf("expected no API calls, saw %d", server.count())
	}
}

func TestRowFailureBecomesCellTextAndRunContinues(t *testing.T) {
	server := &completionServer{
		respond: func(prompt string) (string, int) {
			if strings.Contains(prompt, "Title: Bravo") {
				return "upstream unavailable", http.StatusBadGateway
			}
			return "Hosts: ok | Classification: test", http.StatusOK
		},
	}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	input := testsupport.ControlsCSV(t, t.TempDir(), [][]string{
		{"Alpha", "first"},
		{"Bravo", "second"},
		{"Charlie", "third"},
	})

	summary, err := fixture.proc.Run(context.Background(), batch.Request{InputPath: input})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 1 || summary.Generated != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	output, err := sheet.Read(summary.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := output.Value(1, batch.OutputColumn); !strings.HasPrefix(got, "Error generating description:") {
		t.Fatalf("failed row cell = %q", got)
	}
	if got := output.Value(2, batch.OutputColumn); !strings.HasPrefix(got, "Hosts:") {
		t.Fatalf("row after failure should still generate, got %q", got)
	}
	if len(fixture.delays) != 3 {
		t.Fatalf("delay count = %d, want one per row including the failed one", len(fixture.delays))
	}

	failedRows, err := fixture.store.FailedRows(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("failed rows: %v", err)
	}
	if len(failedRows) != 1 || failedRows[0].RowIndex != 1 || failedRows[0].ErrorKind != "transient" {
		t.Fatalf("failed rows = %+v", failedRows)
	}
}

func TestRunForcesUnknownOutputExtensionToCSV(t *testing.T) {
	server := &completionServer{}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	dir := t.TempDir()
	input := testsupport.ControlsCSV(t, dir, [][]string{{"Alpha", "first"}})

	summary, err := fixture.proc.Run(context.Background(), batch.Request{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "out.dat"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasSuffix(summary.OutputPath, "out.csv") {
		t.Fatalf("output path = %q, want .csv", summary.OutputPath)
	}
}

func TestSecondRunBlockedByLock(t *testing.T) {
	server := &completionServer{}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	input := testsupport.ControlsCSV(t, t.TempDir(), [][]string{{"Alpha", "first"}})

	release := make(chan struct{})
	running := make(chan struct{})
	var once sync.Once
	slow, err := batch.New(fixture.cfg, fixture.store, nil, nil, batch.WithSleeper(func(time.Duration) {
		once.Do(func() { close(running) })
		<-release
	}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := slow.Run(context.Background(), batch.Request{InputPath: input})
		done <- err
	}()
	<-running

	_, err = fixture.proc.Run(context.Background(), batch.Request{InputPath: input})
	if err == nil || !strings.Contains(err.Error(), "already in progress") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRetryRegeneratesOnlyFailedRows(t *testing.T) {
	var failBravo = true
	var mu sync.Mutex
	server := &completionServer{
		respond: func(prompt string) (string, int) {
			mu.Lock()
			fail := failBravo
			mu.Unlock()
			if fail && strings.Contains(prompt, "Title: Bravo") {
				return "upstream unavailable", http.StatusBadGateway
			}
			return "Hosts: ok | Classification: test", http.StatusOK
		},
	}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	input := testsupport.ControlsCSV(t, t.TempDir(), [][]string{
		{"Alpha", "first"},
		{"Bravo", "second"},
	})

	first, err := fixture.proc.Run(context.Background(), batch.Request{InputPath: input})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Failed != 1 {
		t.Fatalf("first run failed = %d, want 1", first.Failed)
	}
	callsAfterFirst := server.count()

	mu.Lock()
	failBravo = false
	mu.Unlock()

	retried, err := fixture.proc.Retry(context.Background(), first.RunID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Failed != 0 || retried.Generated != 2 {
		t.Fatalf("retry summary = %+v", retried)
	}
	if extra := server.count() - callsAfterFirst; extra != 1 {
		t.Fatalf("retry made %d API calls, want 1 (only the failed row)", extra)
	}

	output, err := sheet.Read(retried.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for i := 0; i < 2; i++ {
		if got := output.Value(i, batch.OutputColumn); !strings.HasPrefix(got, "Hosts:") {
			t.Fatalf("row %d = %q", i, got)
		}
	}
}

func TestRetryReadsRecordedWorksheet(t *testing.T) {
	var failBravo = true
	var mu sync.Mutex
	server := &completionServer{
		respond: func(prompt string) (string, int) {
			mu.Lock()
			fail := failBravo
			mu.Unlock()
			if fail && strings.Contains(prompt, "Title: Bravo") {
				return "upstream unavailable", http.StatusBadGateway
			}
			return "Hosts: ok | Classification: test", http.StatusOK
		},
	}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	input := testsupport.ControlsWorkbook(t, t.TempDir(), "Controls", [][]string{
		{"Alpha", "first"},
		{"Bravo", "second"},
	})

	first, err := fixture.proc.Run(context.Background(), batch.Request{InputPath: input, SheetName: "Controls"})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Failed != 1 {
		t.Fatalf("first run failed = %d, want 1", first.Failed)
	}

	prior, err := fixture.store.RunByID(context.Background(), first.RunID)
	if err != nil {
		t.Fatalf("run by id: %v", err)
	}
	if prior.SheetName != "Controls" {
		t.Fatalf("recorded sheet = %q, want Controls", prior.SheetName)
	}

	mu.Lock()
	failBravo = false
	mu.Unlock()

	// The retry must read the worksheet the run was made against, not the
	// workbook's first sheet.
	retried, err := fixture.proc.Retry(context.Background(), first.RunID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Failed != 0 || retried.Generated != 2 {
		t.Fatalf("retry summary = %+v", retried)
	}
}

func TestRetryUnknownRunFails(t *testing.T) {
	server := &completionServer{}
	ts := httptest.NewServer(server.handler(t))
	defer ts.Close()

	fixture := newFixture(t, ts.URL)
	_, err := fixture.proc.Retry(context.Background(), "no-such-run")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
