package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/services/llm"
)

// CheckCredentials verifies an API key is available without contacting the API.
func CheckCredentials(cfg *config.Config) Result {
	const name = "API credentials"
	if strings.TrimSpace(cfg.API.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing (set CURSOR_API_KEY or pass --api-key)"}
	}
	return Result{Name: name, Passed: true, Detail: "API key configured"}
}

// CheckTemplate verifies the prompt template file exists and is non-empty.
func CheckTemplate(path string) Result {
	const name = "Prompt template"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if info.Size() == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: file is empty)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckInputFile verifies the input file exists, carries a supported
// extension, and is readable.
func CheckInputFile(path string) Result {
	const name = "Input file"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".xls":
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unsupported file type, use .csv, .xlsx, or .xls)", path)}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckOutputDirectory verifies the directory the output file will land in
// is writable.
func CheckOutputDirectory(dir string) Result {
	return checkDirectory("Output directory", dir, unix.W_OK|unix.X_OK)
}

// CheckDataDirectory verifies the ledger/lock directory is usable, creating
// it when absent as the ledger open path would.
func CheckDataDirectory(dir string) Result {
	const name = "Data directory"
	if _, err := os.Stat(dir); err != nil && os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", dir, mkErr)}
		}
	}
	return checkDirectory(name, dir, unix.R_OK|unix.W_OK|unix.X_OK)
}

func checkDirectory(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (ok)", path)}
}

// CheckAPI verifies the model API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckAPI(ctx context.Context, cfg *config.Config) Result {
	const name = "Model API"
	if cfg.API.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.API.APIKey,
		BaseURL:        cfg.API.BaseURL,
		Model:          cfg.API.Model,
		Repository:     cfg.API.Repository,
		TimeoutSeconds: cfg.API.RequestTimeoutSeconds,
	})

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// summarizeAPIError produces a human-readable summary for health check failures.
func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
