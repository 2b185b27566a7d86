package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	flags := &overrides{delaySeconds: -1}
	var outputFlag string
	var sheetFlag string

	ctx := newCommandContext(&configFlag, flags)

	rootCmd := &cobra.Command{
		Use:   "scribe [input_file]",
		Short: "Generate AI descriptions for cybersecurity control spreadsheets",
		Long: "Scribe reads a spreadsheet of cybersecurity controls (columns \"title\" and\n" +
			"\"description\"), requests a structured description for every row from the\n" +
			"configured model API, and writes the augmented table with a new\n" +
			"\"AI generated description\" column.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runGenerate(cmd, ctx, args[0], outputFlag, sheetFlag)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&flags.apiKey, "api-key", "k", "", "API key (overrides CURSOR_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&flags.apiURL, "api-url", "u", "", "API base URL")
	rootCmd.PersistentFlags().StringVarP(&flags.repository, "repository", "r", "", "Workspace repository for the agent API (overrides CURSOR_REPOSITORY)")
	rootCmd.PersistentFlags().StringVarP(&flags.model, "model", "m", "", "Model name")
	rootCmd.PersistentFlags().StringVar(&flags.templatePath, "template", "", "Prompt template file path")
	rootCmd.PersistentFlags().IntVar(&flags.delaySeconds, "delay", -1, "Seconds to wait between rows")

	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path (default: input with _generated suffix)")
	rootCmd.Flags().StringVar(&sheetFlag, "sheet", "", "Worksheet to read from workbook inputs (default: first)")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newPreflightCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}
