package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/retention-cli/internal/utils"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline runs recorded in the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ws.Runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		start := 0
		if runsLimit > 0 && len(ws.Runs) > runsLimit {
			start = len(ws.Runs) - runsLimit
		}
		// newest first
		for i := len(ws.Runs) - 1; i >= start; i-- {
			r := ws.Runs[i]
			fmt.Fprintf(out, "- %s  %s  %-9s  %s\n", shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.Status, utils.FormatDuration(r.Duration()))
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show stages and artifacts of a run (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		r := ws.LatestRun()
		if len(args) == 1 {
			if r, err = ws.FindRun(args[0]); err != nil {
				return err
			}
		}
		if r == nil {
			return fmt.Errorf("no runs recorded in %s", ws.RootDir())
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:      %s\n", r.ID)
		fmt.Fprintf(out, "Status:   %s\n", r.Status)
		fmt.Fprintf(out, "Started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
		fmt.Fprintf(out, "Duration: %s\n", utils.FormatDuration(r.Duration()))
		if r.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", r.Error)
		}
		fmt.Fprintln(out, "Stages:")
		for _, s := range r.Stages {
			fmt.Fprintf(out, "  - %-9s %-8s rows %d -> %d  %s\n", s.Name, s.Status, s.RowsIn, s.RowsOut, utils.FormatDuration(s.Duration))
			for _, op := range s.SkippedOps {
				fmt.Fprintf(out, "      skipped: %s\n", op)
			}
		}
		if len(r.Artifacts) > 0 {
			fmt.Fprintln(out, "Artifacts:")
			for _, a := range r.Artifacts {
				fmt.Fprintf(out, "  - %s\n", a)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of recent runs to list (0 = all)")
}
