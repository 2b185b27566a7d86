package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set api_key (or export CURSOR_API_KEY) before running Scribe.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file does not exist; showing defaults")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "api.base_url:                    %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "api.api_key:                     %s\n", redactSecret(cfg.API.APIKey))
			fmt.Fprintf(out, "api.repository:                  %s\n", valueOrUnset(cfg.API.Repository))
			fmt.Fprintf(out, "api.model:                       %s\n", cfg.API.Model)
			fmt.Fprintf(out, "api.request_timeout_seconds:     %d\n", cfg.API.RequestTimeoutSeconds)
			fmt.Fprintf(out, "api.agent_poll_interval_seconds: %d\n", cfg.API.AgentPollIntervalSeconds)
			fmt.Fprintf(out, "api.agent_poll_max_attempts:     %d\n", cfg.API.AgentPollMaxAttempts)
			fmt.Fprintf(out, "generation.template_path:        %s\n", cfg.Generation.TemplatePath)
			fmt.Fprintf(out, "generation.row_delay_seconds:    %d\n", cfg.Generation.RowDelaySeconds)
			fmt.Fprintf(out, "generation.strategies:           %s\n", strings.Join(cfg.Generation.Strategies, ", "))
			fmt.Fprintf(out, "paths.data_dir:                  %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "paths.log_dir:                   %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "logging.level:                   %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "logging.format:                  %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "notifications.ntfy_topic:        %s\n", valueOrUnset(cfg.Notifications.NtfyTopic))
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			if cfg.API.APIKey == "" {
				fmt.Fprintln(out, "Note: no API key configured; batch runs will fail until CURSOR_API_KEY is set")
			}
			return nil
		},
	}
}

func redactSecret(value string) string {
	if value == "" {
		return "(unset)"
	}
	if len(value) <= 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

func valueOrUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(unset)"
	}
	return value
}
