package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelkeeper/internal/api"
	"reelkeeper/internal/media"
	"reelkeeper/internal/pipeline"
)

type scanFlags struct {
	extensions []string
	minSize    int64
	noRecurse  bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.extensions, "ext", nil, "Restrict scanning to these extensions (e.g. .mkv)")
	cmd.Flags().Int64Var(&f.minSize, "min-size", -1, "Skip files smaller than this many bytes")
	cmd.Flags().BoolVar(&f.noRecurse, "no-recurse", false, "Scan only the top-level directory")
}

func (f *scanFlags) apply(filters pipeline.Filters) pipeline.Filters {
	if len(f.extensions) > 0 {
		filters.Extensions = f.extensions
	}
	if f.minSize >= 0 {
		filters.MinSize = f.minSize
	}
	if f.noRecurse {
		filters.Recursive = false
	}
	return filters
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Scan a directory and show parsed metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			files, stats, err := svc.Scan(runContext(cmd, "scan"), args[0], flags.apply(svc.DefaultFilters()))
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					Files []api.FileView    `json:"files"`
					Stats api.ScanStatsView `json:"stats"`
				}{api.FromScannedFiles(files), api.FromStats(stats)})
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No media files found")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					textCol("File"), textCol("Title"), numberCol("Year"), numberCol("S"), numberCol("E"),
					textCol("Quality"), numberCol("Size"), textCol("Parser"),
				},
				fileRows(files),
			))
			fmt.Fprintf(out, "%d files, %d directories, %d rejected\n",
				len(files), stats.Scan.DirsScanned, stats.Scan.FilesSeen-stats.Scan.FilesAdmitted)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newGroupCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags
	cmd := &cobra.Command{
		Use:   "group <dir>",
		Short: "Scan a directory and show how files group into shows and movies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			files, _, err := svc.Scan(runContext(cmd, "group"), args[0], flags.apply(svc.DefaultFilters()))
			if err != nil {
				return err
			}
			groups, err := svc.Group(files)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.FromGroups(groups, nil))
			}

			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No groups formed")
				return nil
			}
			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				matcher := ""
				if g.Evidence != nil {
					matcher = g.Evidence.SelectedMatcher
				}
				rows = append(rows, []string{
					g.Title,
					intOrDash(g.Season),
					strconv.Itoa(len(g.Files)),
					fmt.Sprintf("%.2f", g.Confidence()),
					matcher,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{textCol("Group"), numberCol("Season"), numberCol("Files"), numberCol("Confidence"), textCol("Matcher")},
				rows,
			))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func fileRows(files []*media.ScannedFile) [][]string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		md := f.Metadata
		rows = append(rows, []string{
			f.Name(),
			md.Title,
			intOrDash(md.Year),
			intOrDash(md.Season),
			episodeLabel(md),
			md.Quality,
			humanize.Bytes(uint64(max(f.Size, 0))),
			md.Parser,
		})
	}
	return rows
}

func episodeLabel(md media.Metadata) string {
	if md.Episode <= 0 {
		return "-"
	}
	if md.EpisodeEnd > md.Episode {
		return fmt.Sprintf("%d-%d", md.Episode, md.EpisodeEnd)
	}
	return strconv.Itoa(md.Episode)
}

func intOrDash(v int) string {
	if v <= 0 {
		return "-"
	}
	return strconv.Itoa(v)
}
