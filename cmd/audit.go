package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retention-cli/internal/audit"
	"github.com/KaramelBytes/retention-cli/internal/logging"
	"github.com/KaramelBytes/retention-cli/internal/report"
	"github.com/KaramelBytes/retention-cli/internal/store"
)

var (
	audOutputDir  string
	audFormats    []string
	audGroupBy    []string
	audCorr       bool
	audSampleRows int
	audPrint      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [file]",
	Short: "Score data quality and write the insights report",
	Long: `Audit scores the final table of the workspace store and writes the report
into the workspace reports directory. Given a file, it audits that file
instead and prints the Markdown report unless --output is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		opt := audit.DefaultOptions()
		opt.IdentityColumn = c.IdentityColumn
		opt.OutlierMultiplier = c.OutlierMultiplier
		opt.ConsistencyTolerance = c.ConsistencyTolerance
		opt.Profile.GroupBy = audGroupBy
		opt.Profile.Correlations = audCorr
		if audSampleRows > 0 {
			opt.Profile.SampleRows = audSampleRows
		}
		formats := c.ReportFormats
		if cmd.Flags().Changed("format") {
			formats = audFormats
		}
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			d, err := store.ReadFile(args[0])
			if err != nil {
				return err
			}
			log, closeLog, err := logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat})
			if err != nil {
				return err
			}
			defer closeLog()
			rep, err := audit.Run(d, opt, logging.Stage(log, audit.StageName, ""))
			if err != nil {
				return err
			}
			if audOutputDir == "" {
				fmt.Fprintln(out, report.Markdown(rep))
				return nil
			}
			paths, err := report.Write(rep, audOutputDir, formats)
			if err != nil {
				return err
			}
			printWritten(cmd, rep, paths)
			return nil
		}

		ctx, stop := stageContext(cmd)
		defer stop()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		pc := pipelineConfig(e.ws)
		pc.Audit = opt
		pc.ReportFormats = formats
		if audOutputDir != "" {
			pc.ReportDir = audOutputDir
		}
		rep, paths, err := e.pipeline(pc).Audit(ctx)
		if err != nil {
			return err
		}
		printWritten(cmd, rep, paths)
		if audPrint {
			fmt.Fprintln(out, report.Markdown(rep))
		}
		return nil
	},
}

func printWritten(cmd *cobra.Command, rep *audit.Report, paths []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Audited %d records: quality %.2f/100 (%s)\n", rep.Rows, rep.Quality.Score, rep.Quality.Rating)
	if !rep.Readiness.Ready {
		fmt.Fprintln(out, "  ⚠ Dataset is not dashboard ready")
	}
	for _, p := range paths {
		fmt.Fprintf(out, "✓ Wrote %s\n", p)
	}
	if len(rep.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "⚠ %d computations skipped (see report)\n", len(rep.Skipped))
	}
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVarP(&audOutputDir, "output", "o", "", "directory to write reports (default: workspace reports/)")
	auditCmd.Flags().StringSliceVar(&audFormats, "format", report.DefaultFormats, "report formats: markdown,json,xlsx")
	auditCmd.Flags().StringSliceVar(&audGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	auditCmd.Flags().BoolVar(&audCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	auditCmd.Flags().IntVar(&audSampleRows, "sample-rows", 0, "number of sample rows in the column profile")
	auditCmd.Flags().BoolVar(&audPrint, "print", false, "also print the Markdown report")
}
