package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a minimal config file pointing all paths into the
// test's temp directory and the API at the given base URL.
func writeTestConfig(t *testing.T, dir, baseURL, templatePath string) string {
	t.Helper()
	content := fmt.Sprintf(`[api]
base_url = %q
api_key = "test-key"
model = "gpt-4"

[generation]
template_path = %q
row_delay_seconds = 1

[paths]
data_dir = %q
log_dir = %q

[logging]
level = "error"
format = "json"
`, baseURL, templatePath, filepath.Join(dir, "data"), filepath.Join(dir, "logs"))

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "prompt_template.txt")
	if err := os.WriteFile(path, []byte("Generate structured output.\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func writeInputCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "controls.csv")
	content := "title,description\nAccess Control,Restrict access to authorized users\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func neutralizeEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CURSOR_API_KEY", "")
	t.Setenv("CURSOR_REPOSITORY", "")
	t.Setenv("SCRIBE_NTFY_TOPIC", "")
}

func TestRootCommandRunsBatch(t *testing.T) {
	neutralizeEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hosts: all | Classification: access"}},
			},
		})
	}))
	defer server.Close()

	dir := t.TempDir()
	template := writeTemplate(t, dir)
	configPath := writeTestConfig(t, dir, server.URL, template)
	input := writeInputCSV(t, dir)
	output := filepath.Join(dir, "out.csv")

	stdout, err := execute(t, input, "-c", configPath, "-o", output, "--delay", "0")
	if err != nil {
		t.Fatalf("execute: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "Completed! Results saved to: "+output) {
		t.Fatalf("missing completion message in %q", stdout)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "AI generated description") {
		t.Fatalf("output missing generated column: %s", data)
	}
	if !strings.Contains(string(data), "Hosts: all | Classification: access") {
		t.Fatalf("output missing generated text: %s", data)
	}
}

func TestRootCommandWithoutArgsShowsHelp(t *testing.T) {
	neutralizeEnv(t)

	dir := t.TempDir()
	template := writeTemplate(t, dir)
	configPath := writeTestConfig(t, dir, "https://api.cursor.com", template)

	stdout, err := execute(t, "-c", configPath)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Fatalf("expected help output, got %q", stdout)
	}
}

func TestRootCommandFailsWithoutCredentials(t *testing.T) {
	neutralizeEnv(t)

	dir := t.TempDir()
	template := writeTemplate(t, dir)
	configPath := writeTestConfig(t, dir, "https://api.cursor.com", template)
	config := strings.ReplaceAll(mustRead(t, configPath), `api_key = "test-key"`, "")
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	input := writeInputCSV(t, dir)

	_, err := execute(t, input, "-c", configPath, "--delay", "0")
	if err == nil {
		t.Fatal("expected credential failure")
	}
	if !strings.Contains(err.Error(), "CURSOR_API_KEY") {
		t.Fatalf("error should name CURSOR_API_KEY: %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	neutralizeEnv(t)

	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")

	stdout, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "Wrote sample configuration to "+target) {
		t.Fatalf("unexpected output %q", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	// A second init without --overwrite refuses to clobber the file.
	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config file")
	}
}

func TestRunsListEmptyLedger(t *testing.T) {
	neutralizeEnv(t)

	dir := t.TempDir()
	template := writeTemplate(t, dir)
	configPath := writeTestConfig(t, dir, "https://api.cursor.com", template)

	stdout, err := execute(t, "runs", "list", "-c", configPath)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout, "No runs recorded") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestCLIFlagsOverrideConfig(t *testing.T) {
	neutralizeEnv(t)

	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gotModel = payload.Model
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hosts: x | Classification: y"}},
			},
		})
	}))
	defer server.Close()

	dir := t.TempDir()
	template := writeTemplate(t, dir)
	configPath := writeTestConfig(t, dir, server.URL, template)
	input := writeInputCSV(t, dir)

	_, err := execute(t, input, "-c", configPath, "-m", "gpt-4o", "--delay", "0",
		"-o", filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotModel != "gpt-4o" {
		t.Fatalf("model = %q, want flag override gpt-4o", gotModel)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestTruncateCellRespectsRuneBoundaries(t *testing.T) {
	if got := truncateCell("Überprüfung der Zugriffsrechte", 10); got != "Überprü..." {
		t.Fatalf("truncateCell = %q", got)
	}
	if got := truncateCell("short", 40); got != "short" {
		t.Fatalf("truncateCell = %q, want unchanged", got)
	}
}
