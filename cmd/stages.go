package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestSource string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a raw CSV/TSV/XLSX export into the raw table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := stageContext(cmd)
		defer stop()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		pc := pipelineConfig(e.ws)
		pc.Source = ingestSource
		n, err := e.pipeline(pc).Ingest(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Ingested %d records into %s\n", n, pc.Tables.Raw)
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Normalize, impute and deduplicate the raw table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := stageContext(cmd)
		defer stop()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		pc := pipelineConfig(e.ws)
		rep, err := e.pipeline(pc).Clean(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Cleaned %s -> %s\n", pc.Tables.Raw, pc.Tables.Cleaned)
		fmt.Fprintf(out, "  Records: %d -> %d\n", rep.InitialRows, rep.FinalRows)
		fmt.Fprintf(out, "  Missing values: %d -> %d\n", rep.MissingBefore, rep.MissingAfter)
		if rep.Imputation != nil {
			fmt.Fprintf(out, "  Imputed total_charges: %d\n", rep.Imputation.Imputed)
		}
		fmt.Fprintf(out, "  Duplicates removed: %d exact, %d by %s\n",
			rep.Duplicates.ExactRemoved, rep.Duplicates.IdentityRemoved, rep.Duplicates.IdentityColumn)
		for _, o := range rep.Outliers {
			if o.Count > 0 {
				fmt.Fprintf(out, "  Outliers in %s: %d\n", o.Column, o.Count)
			}
		}
		for _, s := range rep.Skipped {
			fmt.Fprintf(out, "  Skipped %s: %s\n", s.Computation, s.Reason)
		}
		return nil
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Derive segments, risk flags and retention scores from the cleaned table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := stageContext(cmd)
		defer stop()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		pc := pipelineConfig(e.ws)
		rep, err := e.pipeline(pc).Features(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Derived %d features for %d records into %s\n", len(rep.Added), rep.Rows, pc.Tables.Final)
		fmt.Fprintf(out, "  Columns: %d -> %d\n", rep.InitialColumns, rep.FinalColumns)
		fmt.Fprintf(out, "  High churn risk: %d\n", rep.ChurnRisk)
		fmt.Fprintf(out, "  Payment issues: %d\n", rep.PaymentIssues)
		fmt.Fprintf(out, "  Retention score range: %.2f - %.2f\n", rep.RetentionMin, rep.RetentionMax)
		for _, b := range rep.Segments {
			fmt.Fprintf(out, "  %s: %d\n", b.Label, b.Count)
		}
		if rep.UnmappedInternet > 0 {
			fmt.Fprintf(out, "  ⚠ Unmapped internet_service values: %d\n", rep.UnmappedInternet)
		}
		for _, s := range rep.Skipped {
			fmt.Fprintf(out, "  Skipped %s: %s\n", s.Computation, s.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd, cleanCmd, featuresCmd)
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "raw data file (default: newest file in data/raw)")
}
