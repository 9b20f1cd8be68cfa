package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retention-cli/internal/store"
	"github.com/KaramelBytes/retention-cli/internal/synth"
	"github.com/KaramelBytes/retention-cli/internal/utils"
	"github.com/KaramelBytes/retention-cli/internal/workspace"
)

// DefaultRawFile is the file generate writes into the workspace raw directory.
const DefaultRawFile = "telecom_customer_data.csv"

var (
	genRows          int
	genSeed          uint64
	genMissingRate   float64
	genPaddedRate    float64
	genDuplicateRate float64
	genOutput        string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic telecom customer export with realistic defects",
	Long: `Generate writes a deterministic synthetic customer dataset: missing and
whitespace-padded total_charges values, duplicate records, and churn that
follows contract, tenure and support patterns. The same seed always yields the
same file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := synth.DefaultOptions()
		f := cmd.Flags()
		if f.Changed("rows") {
			opt.Rows = genRows
		}
		if f.Changed("seed") {
			opt.Seed = genSeed
		}
		if f.Changed("missing-rate") {
			opt.MissingRate = genMissingRate
		}
		if f.Changed("padded-rate") {
			opt.PaddedRate = genPaddedRate
		}
		if f.Changed("duplicate-rate") {
			opt.DuplicateRate = genDuplicateRate
		}
		for name, rate := range map[string]float64{"missing-rate": opt.MissingRate, "padded-rate": opt.PaddedRate, "duplicate-rate": opt.DuplicateRate} {
			if rate < 0 || rate >= 1 {
				return fmt.Errorf("--%s must be in [0, 1): %v", name, rate)
			}
		}
		if opt.MissingRate+opt.PaddedRate >= 1 {
			return fmt.Errorf("--missing-rate plus --padded-rate must stay below 1")
		}

		out := genOutput
		if out == "" {
			ws, err := openWorkspace()
			if err != nil {
				return fmt.Errorf("%w (or pass --output)", err)
			}
			out = filepath.Join(ws.Path(workspace.DirRaw), DefaultRawFile)
		}
		if err := utils.EnsureDir(filepath.Dir(out)); err != nil {
			return err
		}

		d := synth.Generate(opt)
		var data []byte
		switch strings.ToLower(filepath.Ext(out)) {
		case ".xlsx":
			b, err := store.EncodeXLSX(d, d.Name)
			if err != nil {
				return err
			}
			data = b
		case ".csv", "":
			var buf bytes.Buffer
			if err := store.WriteCSV(&buf, d); err != nil {
				return err
			}
			data = buf.Bytes()
		default:
			return fmt.Errorf("unsupported output extension %q (use .csv or .xlsx)", filepath.Ext(out))
		}
		if err := utils.SafeWriteFile(out, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Generated %d records (%d columns) at %s\n", d.Len(), len(d.Columns), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	def := synth.DefaultOptions()
	generateCmd.Flags().IntVarP(&genRows, "rows", "n", def.Rows, "number of distinct customers")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", def.Seed, "random seed")
	generateCmd.Flags().Float64Var(&genMissingRate, "missing-rate", def.MissingRate, "share of customers with missing total_charges")
	generateCmd.Flags().Float64Var(&genPaddedRate, "padded-rate", def.PaddedRate, "share of customers with whitespace-padded total_charges")
	generateCmd.Flags().Float64Var(&genDuplicateRate, "duplicate-rate", def.DuplicateRate, "share of customers appended again as duplicates")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "output file, .csv or .xlsx (default: data/raw/"+DefaultRawFile+" in the workspace)")
}
