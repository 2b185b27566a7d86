package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizeAPI() {
	// Environment (including .env entries) wins over config-file secrets;
	// CLI flags are applied later and win over both.
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)
	if value, ok := os.LookupEnv("CURSOR_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.API.APIKey = strings.TrimSpace(value)
	}
	c.API.Repository = strings.TrimSpace(c.API.Repository)
	if value, ok := os.LookupEnv("CURSOR_REPOSITORY"); ok && strings.TrimSpace(value) != "" {
		c.API.Repository = strings.TrimSpace(value)
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	c.API.Model = strings.TrimSpace(c.API.Model)
	if c.API.Model == "" {
		c.API.Model = defaultModel
	}
}

func (c *Config) normalizeGeneration() error {
	c.Generation.TemplatePath = strings.TrimSpace(c.Generation.TemplatePath)
	if c.Generation.TemplatePath == "" {
		c.Generation.TemplatePath = defaultTemplatePath
	}
	expanded, err := expandPath(c.Generation.TemplatePath)
	if err != nil {
		return fmt.Errorf("generation.template_path: %w", err)
	}
	c.Generation.TemplatePath = expanded

	if len(c.Generation.Strategies) == 0 {
		c.Generation.Strategies = defaultStrategies()
	}
	for i, name := range c.Generation.Strategies {
		c.Generation.Strategies[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SCRIBE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}
