package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credential
// presence is deliberately not checked here so commands that never call the
// API (config show, runs list) work without a key; the batch run path calls
// RequireCredentials before any request is made.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if c.API.Model == "" {
		return errors.New("api.model must be set")
	}
	return ensurePositiveMap(map[string]int{
		"api.request_timeout_seconds":     c.API.RequestTimeoutSeconds,
		"api.agent_poll_interval_seconds": c.API.AgentPollIntervalSeconds,
		"api.agent_poll_max_attempts":     c.API.AgentPollMaxAttempts,
	})
}

func (c *Config) validateGeneration() error {
	if c.Generation.TemplatePath == "" {
		return errors.New("generation.template_path must be set")
	}
	if c.Generation.RowDelaySeconds < 0 {
		return errors.New("generation.row_delay_seconds must not be negative")
	}
	if len(c.Generation.Strategies) == 0 {
		return errors.New("generation.strategies must list at least one strategy")
	}
	seen := make(map[string]struct{}, len(c.Generation.Strategies))
	for _, name := range c.Generation.Strategies {
		switch name {
		case StrategyCompletion, StrategyAgent:
		default:
			return fmt.Errorf("generation.strategies: unknown strategy %q (use %q or %q)", name, StrategyCompletion, StrategyAgent)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("generation.strategies: strategy %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

// RequireCredentials ensures an API key is available before the run makes any
// request. This is the only run-level credential gate.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.API.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/scribe/config.toml"
	}
	return fmt.Errorf("api.api_key is required. Set CURSOR_API_KEY (environment or .env file), pass --api-key, or edit %s (create with 'scribe config init')", defaultPath)
}

// AgentConfigured reports whether the asynchronous agent strategy can run.
func (c *Config) AgentConfigured() bool {
	return strings.TrimSpace(c.API.Repository) != ""
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
