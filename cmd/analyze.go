package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/retention-cli/internal/analysis"
	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/store"
	"github.com/KaramelBytes/retention-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaTable      string
	anaOutputPath string
	anaSampleRows int
	anaTopValues  int
	anaGroupBy    []string
	anaCorr       bool
	anaOutliers   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Profile a CSV/TSV/XLSX file or a store table and produce a concise summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (anaTable != "") {
			return fmt.Errorf("specify exactly one of <file> or --table")
		}
		opt := analysis.DefaultOptions()
		if anaSampleRows > 0 {
			opt.SampleRows = anaSampleRows
		}
		if anaTopValues > 0 {
			opt.TopValues = anaTopValues
		}
		// Analytics flags
		opt.GroupBy = anaGroupBy
		opt.Correlations = anaCorr
		if cmd.Flags().Changed("outliers") {
			opt.Outliers = anaOutliers
		}
		opt.OutlierMultiplier = currentConfig().OutlierMultiplier

		var d *dataset.Dataset
		if len(args) == 1 {
			var err error
			if d, err = store.ReadFile(args[0]); err != nil {
				return err
			}
		} else {
			ctx, stop := stageContext(cmd)
			defer stop()
			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()
			if d, err = e.store.Load(ctx, anaTable); err != nil {
				return err
			}
		}
		md := analysis.Profile(d, opt).Markdown()

		// Decide where to write: --output path or stdout
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), md); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaTable, "table", "t", "", "store table to profile instead of a file")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top-values", 3, "most frequent values listed per categorical column")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "count values outside the IQR fence")
}
