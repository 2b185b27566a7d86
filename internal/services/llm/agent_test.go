package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newAgentServer(t *testing.T, statuses []map[string]any) (*httptest.Server, *int, *agentCreateRequest) {
	t.Helper()
	polls := new(int)
	created := new(agentCreateRequest)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v0/agents":
			if err := json.NewDecoder(r.Body).Decode(created); err != nil {
				t.Fatalf("decode create request: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "agent-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v0/agents/agent-1":
			idx := *polls
			if idx >= len(statuses) {
				idx = len(statuses) - 1
			}
			*polls++
			_ = json.NewEncoder(w).Encode(statuses[idx])
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)
	return server, polls, created
}

func TestRunAgentPollsUntilFinished(t *testing.T) {
	server, polls, created := newAgentServer(t, []map[string]any{
		{"id": "agent-1", "status": "CREATING"},
		{"id": "agent-1", "status": "RUNNING"},
		{"id": "agent-1", "status": "FINISHED", "summary": "  Generated control text.  "},
	})

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	result, err := client.RunAgent(context.Background(), "generate the description")
	if err != nil {
		t.Fatalf("RunAgent returned error: %v", err)
	}
	if result != "Generated control text." {
		t.Fatalf("unexpected result %q", result)
	}
	if *polls != 3 {
		t.Fatalf("expected 3 status checks, got %d", *polls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(slept))
	}
	for _, d := range slept {
		if d != defaultPollInterval {
			t.Fatalf("expected %s waits, got %v", defaultPollInterval, slept)
		}
	}
	if created.Prompt.Text != "generate the description" {
		t.Fatalf("unexpected prompt %q", created.Prompt.Text)
	}
	if created.Source.Repository != "org/controls" || created.Source.Ref != "main" {
		t.Fatalf("unexpected source %+v", created.Source)
	}
}

func TestWaitForAgentResultFieldPriority(t *testing.T) {
	cases := []struct {
		name   string
		status map[string]any
		want   string
	}{
		{
			name:   "summary wins",
			status: map[string]any{"status": "FINISHED", "summary": "from summary", "result": "from result", "output": "from output"},
			want:   "from summary",
		},
		{
			name:   "result next",
			status: map[string]any{"status": "FINISHED", "result": "from result", "output": "from output"},
			want:   "from result",
		},
		{
			name:   "output last",
			status: map[string]any{"status": "FINISHED", "output": "from output"},
			want:   "from output",
		},
		{
			name:   "all absent",
			status: map[string]any{"status": "FINISHED"},
			want:   "",
		},
		{
			name:   "structured summary stringified",
			status: map[string]any{"status": "FINISHED", "summary": map[string]any{"text": "nested"}},
			want:   `{"text":"nested"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, _, _ := newAgentServer(t, []map[string]any{tc.status})
			client := NewClient(
				Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
				WithSleeper(func(time.Duration) {}),
			)
			result, err := client.WaitForAgent(context.Background(), "agent-1")
			if err != nil {
				t.Fatalf("WaitForAgent returned error: %v", err)
			}
			if result != tc.want {
				t.Fatalf("unexpected result %q, want %q", result, tc.want)
			}
		})
	}
}

func TestWaitForAgentTerminalFailure(t *testing.T) {
	server, polls, _ := newAgentServer(t, []map[string]any{
		{"status": "RUNNING"},
		{"status": "FAILED", "error": "quota exceeded"},
	})

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.WaitForAgent(context.Background(), "agent-1")
	if err == nil {
		t.Fatal("expected failure")
	}
	var failure *AgentFailureError
	if !errors.As(err, &failure) {
		t.Fatalf("expected AgentFailureError, got %T: %v", err, err)
	}
	if failure.Status != "FAILED" || failure.Message != "quota exceeded" {
		t.Fatalf("unexpected failure %+v", failure)
	}
	if !strings.Contains(err.Error(), "agent ended with status FAILED: quota exceeded") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if *polls != 2 {
		t.Fatalf("expected polling to stop at failure, got %d checks", *polls)
	}
}

func TestWaitForAgentDefaultFailureMessage(t *testing.T) {
	server, _, _ := newAgentServer(t, []map[string]any{
		{"status": "ERROR"},
	})

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.WaitForAgent(context.Background(), "agent-1")
	if err == nil || !strings.Contains(err.Error(), "Unknown error") {
		t.Fatalf("expected default failure message, got %v", err)
	}
}

func TestWaitForAgentTimesOutAfterAttemptBudget(t *testing.T) {
	server, polls, _ := newAgentServer(t, []map[string]any{
		{"status": "RUNNING"},
	})

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
		WithPollMaxAttempts(4),
		WithPollInterval(5*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	_, err := client.WaitForAgent(context.Background(), "agent-1")
	if !errors.Is(err, ErrAgentTimeout) {
		t.Fatalf("expected ErrAgentTimeout, got %v", err)
	}
	if *polls != 4 {
		t.Fatalf("expected 4 status checks, got %d", *polls)
	}
	if len(slept) != 4 {
		t.Fatalf("expected a wait after every non-terminal check, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 5*time.Second {
			t.Fatalf("expected 5s waits, got %v", slept)
		}
	}
}

func TestWaitForAgentStatusErrorStopsPolling(t *testing.T) {
	var polls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.WaitForAgent(context.Background(), "agent-1")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}
	if polls != 1 {
		t.Fatalf("expected polling to stop on status error, got %d checks", polls)
	}
}

func TestCreateAgentMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"})
	_, err := client.CreateAgent(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "no agent id returned") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestCreateAgentRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad repository", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"})
	_, err := client.CreateAgent(context.Background(), "prompt")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 StatusError, got %v", err)
	}
}

func TestCreateAgentRequiresRepository(t *testing.T) {
	client := NewClient(Config{APIKey: "test", BaseURL: "http://localhost:1", Model: "demo"})
	if _, err := client.CreateAgent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for missing repository")
	}
}

func TestWaitForAgentHonorsContextCancellation(t *testing.T) {
	server, _, _ := newAgentServer(t, []map[string]any{
		{"status": "RUNNING"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo", Repository: "org/controls"},
		WithSleeper(func(time.Duration) { cancel() }),
	)
	_, err := client.WaitForAgent(ctx, "agent-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
