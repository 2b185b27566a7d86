package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/batch"
	"scribe/internal/logging"
	"scribe/internal/notifications"
)

// runGenerate executes the batch run the root command fronts.
func runGenerate(cmd *cobra.Command, ctx *commandContext, inputPath, outputPath, sheetName string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	store, err := ctx.openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	processor, err := batch.New(cfg, store, notifier, logger)
	if err != nil {
		return err
	}

	summary, err := processor.Run(cmd.Context(), batch.Request{
		InputPath:  inputPath,
		OutputPath: outputPath,
		SheetName:  sheetName,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if summary.Failed > 0 {
		fmt.Fprintf(out, "%d of %d rows failed; rerun them with: scribe runs retry %s\n",
			summary.Failed, summary.RowCount, shortRunID(summary.RunID))
	}
	fmt.Fprintf(out, "Completed! Results saved to: %s\n", summary.OutputPath)
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
