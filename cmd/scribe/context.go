package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/ledger"
)

// overrides collects the CLI flags that take precedence over configuration
// and environment values. Empty strings and the -1 delay sentinel mean "not
// set".
type overrides struct {
	apiKey       string
	apiURL       string
	repository   string
	model        string
	templatePath string
	delaySeconds int
}

type commandContext struct {
	configFlag *string
	overrides  *overrides

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, flags *overrides) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		overrides:  flags,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.applyOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyOverrides layers CLI flag values over the loaded configuration.
// Flags win over environment and file values.
func (c *commandContext) applyOverrides(cfg *config.Config) {
	if c.overrides == nil {
		return
	}
	if v := strings.TrimSpace(c.overrides.apiKey); v != "" {
		cfg.API.APIKey = v
	}
	if v := strings.TrimSpace(c.overrides.apiURL); v != "" {
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(c.overrides.repository); v != "" {
		cfg.API.Repository = v
	}
	if v := strings.TrimSpace(c.overrides.model); v != "" {
		cfg.API.Model = v
	}
	if v := strings.TrimSpace(c.overrides.templatePath); v != "" {
		if expanded, err := config.ExpandPath(v); err == nil {
			cfg.Generation.TemplatePath = expanded
		} else {
			cfg.Generation.TemplatePath = v
		}
	}
	if c.overrides.delaySeconds >= 0 {
		cfg.Generation.RowDelaySeconds = c.overrides.delaySeconds
	}
}

func (c *commandContext) openLedger() (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
