package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-news/models"
	"github.com/aluiziolira/go-scrape-news/scraper"
	"github.com/aluiziolira/go-scrape-news/sources"
)

func init() {
	rootCmd.AddCommand(listCmd, detailCmd, exportCmd, runCmd, sourcesCmd)
}

type phaseFunc func(ctx context.Context, d *scraper.Driver, src *sources.Source) ([]*models.PhaseResult, error)

// phaseCommand builds a command that runs fn for every named source and
// prints one summary table at the end.
func phaseCommand(use, short string, fn phaseFunc) *cobra.Command {
	return &cobra.Command{
		Use:       use + " <source>...",
		Short:     short,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: sources.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := lookupSources(args)
			if err != nil {
				return err
			}

			var all []*models.PhaseResult
			var runErr error
			for _, src := range srcs {
				d, err := driverFor(cmd, src)
				if err != nil {
					runErr = err
					break
				}
				results, err := fn(cmd.Context(), d, src)
				all = append(all, results...)
				if err != nil {
					runErr = err
					break
				}
			}

			printSummary(all)
			if runErr != nil {
				slog.Error("run stopped", slog.Any("error", runErr))
			}
			return runErr
		},
	}
}

var listCmd = phaseCommand("list", "Collect listing stubs into <source>_list.jsonl.",
	func(ctx context.Context, d *scraper.Driver, src *sources.Source) ([]*models.PhaseResult, error) {
		return single(d.Collect(ctx, src))
	})

var detailCmd = phaseCommand("detail", "Visit logged stubs and append enriched records to <source>_data.jsonl.",
	func(ctx context.Context, d *scraper.Driver, src *sources.Source) ([]*models.PhaseResult, error) {
		return single(d.Enrich(ctx, src))
	})

var exportCmd = phaseCommand("export", "Write <source>_data.jsonl as a table snapshot.",
	func(ctx context.Context, d *scraper.Driver, src *sources.Source) ([]*models.PhaseResult, error) {
		return single(d.Export(src))
	})

var runCmd = phaseCommand("run", "Run listing, detail and export in order.",
	func(ctx context.Context, d *scraper.Driver, src *sources.Source) ([]*models.PhaseResult, error) {
		return d.Run(ctx, src)
	})

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Prints the sources the scraper knows.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Kind", "Identity", "Target", "Start"})
		for _, name := range sources.Names() {
			src, err := sources.Lookup(name)
			if err != nil {
				return err
			}
			kind, target, start := "feed", fmt.Sprint(src.TargetCount), src.StartURL
			if src.IsKeyword() {
				kind, target, start = "keyword", "-", strings.Replace(src.Keyword.SearchURL, "%s", "<keyword>", 1)
			}
			t.AppendRow(table.Row{src.Name, kind, src.Identity, target, start})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func single(result *models.PhaseResult, err error) ([]*models.PhaseResult, error) {
	if result == nil {
		return nil, err
	}
	return []*models.PhaseResult{result}, err
}

func printSummary(results []*models.PhaseResult) {
	if len(results) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Phase", "Pages", "Seen", "Appended", "Duplicates", "Skipped", "Failed", "Errors", "Stop", "Duration"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Source,
			r.Phase,
			r.Pages,
			r.Candidates,
			r.Appended,
			r.Duplicates,
			r.Skipped,
			r.Failed,
			formatErrors(r.ErrorsByType),
			r.StopReason,
			r.Duration().Round(time.Millisecond),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func formatErrors(byType map[string]int) string {
	if len(byType) == 0 {
		return ""
	}
	parts := make([]string, 0, len(byType))
	keys := make([]string, 0, len(byType))
	for k := range byType {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, byType[k]))
	}
	return strings.Join(parts, " ")
}
