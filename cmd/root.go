package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/retention-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags, applied over the loaded config
	cfgFile         string
	debug           bool
	flagWorkspace   string
	flagLogLevel    string
	flagLogFormat   string
	flagStoreDriver string
	flagStoreDSN    string
	flagIdentityCol string
	flagOutlierMult float64
	flagMetricsFile string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "retention",
	Short: "Retention CLI: clean, enrich and audit customer retention data",
	Long: `Retention is a batch pipeline for telecom customer data. It ingests a raw
export, repairs and deduplicates it, derives churn-risk and retention features,
and writes a data quality audit with business insights.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)

	// Persistent global flags available to all subcommands
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.retention/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.StringVarP(&flagWorkspace, "workspace", "w", "", "workspace directory (default: search upward from the current directory)")
	f.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	f.StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
	f.StringVar(&flagStoreDriver, "store-driver", "", "table store: csv|xlsx|sqlite|postgres|snowflake (overrides config)")
	f.StringVar(&flagStoreDSN, "store-dsn", "", "connection string for postgres or an explicit sqlite file (overrides config)")
	f.StringVar(&flagIdentityCol, "identity-column", "", "column identifying a customer (overrides config)")
	f.Float64Var(&flagOutlierMult, "outlier-multiplier", 0, "IQR multiplier for outlier fences (overrides config)")
	f.StringVar(&flagMetricsFile, "metrics-textfile", "", "write prometheus metrics to this file after a run (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so config set can repair the file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("workspace") && flagWorkspace != "" {
		cfg.WorkspaceDir = flagWorkspace
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if f.Changed("store-driver") && flagStoreDriver != "" {
		cfg.Store.Driver = flagStoreDriver
	}
	if f.Changed("store-dsn") && flagStoreDSN != "" {
		cfg.Store.DSN = flagStoreDSN
	}
	if f.Changed("identity-column") && flagIdentityCol != "" {
		cfg.IdentityColumn = flagIdentityCol
	}
	if f.Changed("outlier-multiplier") && flagOutlierMult > 0 {
		cfg.OutlierMultiplier = flagOutlierMult
	}
	if f.Changed("metrics-textfile") && flagMetricsFile != "" {
		cfg.MetricsTextfile = flagMetricsFile
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: invalid flag override: %v\n", err)
	}
}
