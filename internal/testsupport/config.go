package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and a prompt template already written to disk. Options run last so tests
// can override any field.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.API.APIKey = "test-key"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Generation.TemplatePath = WriteTemplate(t, filepath.Join(base, "prompt_template.txt"))
	cfg.Generation.RowDelaySeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithRepository sets the agent workspace repository.
func WithRepository(repository string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.API.Repository = repository
	}
}

// WithBaseURL points the API client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.API.BaseURL = url
	}
}

// WithStrategies overrides the generation strategy order.
func WithStrategies(names ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Generation.Strategies = names
	}
}
