package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retention-cli/internal/pipeline"
	"github.com/KaramelBytes/retention-cli/internal/utils"
)

var (
	runSource string
	runWatch  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ingest, clean, features and audit in order",
	Long: `Run executes every stage against the workspace store and stops at the first
failure. With --watch the raw data directory is scanned at the given interval
and the pipeline reruns whenever a newer file appears, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		pc := pipelineConfig(e.ws)
		pc.Source = runSource
		p := e.pipeline(pc)
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("watch") {
			if runSource != "" {
				return fmt.Errorf("--source cannot be combined with --watch")
			}
			fmt.Fprintf(out, "Watching %s every %s (Ctrl+C to stop)\n", pc.RawDir, runWatch)
			return p.Watch(ctx, runWatch, func(res *pipeline.Result, err error) {
				printRun(out, res, err)
			})
		}

		res, err := p.Run(ctx)
		printRun(out, res, err)
		return err
	},
}

func printRun(w io.Writer, res *pipeline.Result, err error) {
	if res == nil || res.Run == nil {
		return
	}
	for _, s := range res.Run.Stages {
		mark := "✓"
		if s.Error != "" {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %-9s %6d -> %-6d %s\n", mark, s.Name, s.RowsIn, s.RowsOut, utils.FormatDuration(s.Duration))
	}
	if err != nil {
		fmt.Fprintf(w, "✗ Run %s failed after %s\n", shortID(res.Run.ID), utils.FormatDuration(res.Run.Duration()))
		return
	}
	fmt.Fprintf(w, "✓ Run %s completed in %s\n", shortID(res.Run.ID), utils.FormatDuration(res.Run.Duration()))
	if res.Audit != nil {
		fmt.Fprintf(w, "  Quality score: %.2f/100 (%s)\n", res.Audit.Quality.Score, res.Audit.Quality.Rating)
	}
	for _, a := range res.Artifacts {
		fmt.Fprintf(w, "  Report: %s\n", a)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// stageContext is the context individual stage commands run under.
func stageContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runSource, "source", "s", "", "raw data file to ingest (default: newest file in data/raw)")
	runCmd.Flags().DurationVar(&runWatch, "watch", pipeline.DefaultWatchInterval, "rerun whenever new raw data appears, scanning at this interval")
}
