package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelkeeper/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logs [log-id]",
		Short: "List operation journals, or show the entries of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return showLog(cmd, ctx, svc, args[0])
			}

			summaries, err := svc.Logs()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.FromLogSummaries(summaries))
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No journals recorded")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					s.ID,
					formatTime(s.CreatedAt),
					strconv.Itoa(s.Entries),
					humanize.Bytes(uint64(max(s.Size, 0))),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{textCol("Log ID"), textCol("Created"), numberCol("Entries"), numberCol("Size")},
				rows,
			))
			return nil
		},
	}
}

func showLog(cmd *cobra.Command, ctx *commandContext, svc *api.Service, id string) error {
	log, err := svc.Log(id)
	if err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.FromLogEntries(log.Entries))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Journal %s (%s)\n", log.ID, humanize.Time(log.CreatedAt))
	if len(log.Entries) == 0 {
		fmt.Fprintln(out, "No entries")
		return nil
	}
	rows := make([][]string, 0, len(log.Entries))
	for _, e := range log.Entries {
		rows = append(rows, []string{
			formatTime(e.Timestamp),
			e.Action,
			e.Source,
			e.Destination,
			humanize.Bytes(uint64(max(e.FileSize, 0))),
			yesNo(e.BackupPath != ""),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{textCol("Time"), textCol("Action"), pathCol("Source"), pathCol("Destination"), numberCol("Size"), textCol("Backup")},
		rows,
	))
	return nil
}
