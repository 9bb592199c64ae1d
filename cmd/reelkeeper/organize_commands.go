package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelkeeper/internal/api"
	"reelkeeper/internal/organizer"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "organize <dir>",
		Short: "Identify media in a directory and move it into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			report, runErr := svc.Organize(runContext(cmd, "organize"), args[0], flags.apply(svc.DefaultFilters()), dryRun)
			if report.Plan == nil && runErr != nil {
				return runErr
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, organizeView(report, dryRun)); err != nil {
					return err
				}
				return runErr
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			printPlan(out, report.Plan, colorize)
			if report.Result != nil {
				printResult(out, *report.Result, colorize)
			} else if dryRun {
				fmt.Fprintln(out, "Dry run; no files were changed")
			}
			return runErr
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show the plan without touching files")
	return cmd
}

func newRollbackCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "rollback <log-id>",
		Short: "Undo the file operations recorded in a journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			runCtx := runContext(cmd, "rollback")
			plan, err := svc.Rollback(runCtx, args[0])
			if err != nil {
				return err
			}
			var result *organizer.Result
			var execErr error
			if !dryRun {
				r, err := svc.Execute(runCtx, plan)
				result, execErr = &r, err
			}
			if ctx.jsonOutput() {
				view := struct {
					Plan   []api.OperationView `json:"plan"`
					Result *api.ExecutionView  `json:"result,omitempty"`
				}{Plan: api.FromPlan(plan)}
				if result != nil {
					exec := api.FromResult(*result)
					view.Result = &exec
				}
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
				return execErr
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			printPlan(out, plan, colorize)
			if result != nil {
				printResult(out, *result, colorize)
			}
			return execErr
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show the rollback plan without touching files")
	return cmd
}

type organizeOutput struct {
	DryRun     bool                `json:"dryRun"`
	Stats      api.ScanStatsView   `json:"stats"`
	Groups     []api.GroupView     `json:"groups"`
	Plan       []api.OperationView `json:"plan"`
	Result     *api.ExecutionView  `json:"result,omitempty"`
	DurationMS int64               `json:"durationMs"`
}

func organizeView(report api.OrganizeReport, dryRun bool) organizeOutput {
	view := organizeOutput{
		DryRun:     dryRun,
		Stats:      api.FromStats(report.Stats),
		Groups:     api.FromGroups(report.Groups, report.Matches),
		Plan:       api.FromPlan(report.Plan),
		DurationMS: report.Duration.Milliseconds(),
	}
	if report.Result != nil {
		exec := api.FromResult(*report.Result)
		view.Result = &exec
	}
	return view
}

func printPlan(out io.Writer, plan []organizer.FileOperation, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Plan", colorize))
	if len(plan) == 0 {
		fmt.Fprintln(out, "Nothing to do")
		return
	}
	var total int64
	rows := make([][]string, 0, len(plan))
	for _, op := range plan {
		total += op.Size
		rows = append(rows, []string{string(op.Type), op.Source, op.Destination, humanize.Bytes(uint64(max(op.Size, 0))), op.Warning})
	}
	fmt.Fprintln(out, renderTable(
		[]column{textCol("Op"), pathCol("Source"), pathCol("Destination"), numberCol("Size"), textCol("Warning")},
		rows,
		"", fmt.Sprintf("%d operations", len(plan)), "", humanize.Bytes(uint64(max(total, 0))), "",
	))
}

func printResult(out io.Writer, result organizer.Result, colorize bool) {
	fmt.Fprintln(out, renderSectionHeader("Result", colorize))
	fmt.Fprintln(out, renderSummaryLine("Committed", statusOK, fmt.Sprintf("%d", result.SuccessCount), colorize))
	fmt.Fprintln(out, renderSummaryLine("Skipped", countKind(result.SkippedCount, statusWarn), fmt.Sprintf("%d", result.SkippedCount), colorize))
	fmt.Fprintln(out, renderSummaryLine("Failed", countKind(result.FailedCount, statusError), fmt.Sprintf("%d", result.FailedCount), colorize))
	for _, item := range result.Details {
		if item.Status != organizer.ItemFailed {
			continue
		}
		fmt.Fprintf(out, "    %s: %s\n", item.Operation.Source, item.Error)
	}
	if result.LogID != "" {
		fmt.Fprintln(out, renderSummaryLine("Journal", statusInfo, result.LogID, colorize))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
