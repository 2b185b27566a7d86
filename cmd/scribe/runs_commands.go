package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"scribe/internal/batch"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/notifications"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and retry previous runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsRetryCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				counts, err := store.CountRows(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.CreatedAt.Local().Format("2006-01-02 15:04"),
					string(run.Status),
					strconv.Itoa(run.RowCount),
					strconv.Itoa(counts.Failed),
					run.InputPath,
				})
			}
			out := renderTable(
				[]string{"ID", "Created", "Status", "Rows", "Failed", "Input"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-row outcomes of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:     %s\n", run.ID)
			fmt.Fprintf(out, "Status:  %s\n", run.Status)
			fmt.Fprintf(out, "Input:   %s\n", run.InputPath)
			if run.SheetName != "" {
				fmt.Fprintf(out, "Sheet:   %s\n", run.SheetName)
			}
			if run.OutputPath != "" {
				fmt.Fprintf(out, "Output:  %s\n", run.OutputPath)
			}
			fmt.Fprintf(out, "Created: %s\n", run.CreatedAt.Local().Format(time.RFC1123))
			if run.ErrorDetail != "" {
				fmt.Fprintf(out, "Error:   %s\n", run.ErrorDetail)
			}

			var rows []ledger.RowResult
			if failedOnly {
				rows, err = store.FailedRows(cmd.Context(), run.ID)
			} else {
				rows, err = store.RowsForRun(cmd.Context(), run.ID)
			}
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No row records")
				return nil
			}

			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				detail := row.GeneratedText
				if row.Status == ledger.RowStatusFailed {
					detail = row.ErrorDetail
				}
				tableRows = append(tableRows, []string{
					strconv.Itoa(row.RowIndex + 1),
					truncateCell(row.Title, 40),
					string(row.Status),
					row.Strategy,
					row.ErrorKind,
					truncateCell(strings.ReplaceAll(detail, "\n", " "), 60),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Row", "Title", "Status", "Strategy", "Kind", "Detail"},
				tableRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed rows")
	return cmd
}

func newRunsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <run-id>",
		Short: "Rerun only the failed rows of a previous run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			processor, err := batch.New(cfg, store, notifications.NewService(cfg), logger)
			if err != nil {
				return err
			}
			summary, err := processor.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.Failed > 0 {
				fmt.Fprintf(out, "%d of %d rows still failing\n", summary.Failed, summary.RowCount)
			}
			fmt.Fprintf(out, "Completed! Results saved to: %s\n", summary.OutputPath)
			return nil
		},
	}
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear run history without --yes")
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearRuns(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Run history cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm deletion")
	return cmd
}

func truncateCell(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
