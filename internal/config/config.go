package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. RETENTION_STORE_DRIVER.
const EnvPrefix = "RETENTION"

// Store selects the persistence backend.
type Store struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=csv xlsx sqlite postgres snowflake"`
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	// Dir overrides the workspace default location of table files.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
}

// Tables names the tables each stage writes.
type Tables struct {
	Raw     string `mapstructure:"raw" yaml:"raw" validate:"required,table"`
	Cleaned string `mapstructure:"cleaned" yaml:"cleaned" validate:"required,table"`
	Final   string `mapstructure:"final" yaml:"final" validate:"required,table"`
}

// Global configuration structure.
type Global struct {
	WorkspaceDir         string   `mapstructure:"workspace_dir" yaml:"workspace_dir,omitempty"`
	Store                Store    `mapstructure:"store" yaml:"store"`
	LogLevel             string   `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat            string   `mapstructure:"log_format" yaml:"log_format" validate:"oneof=json console"`
	IdentityColumn       string   `mapstructure:"identity_column" yaml:"identity_column"`
	OutlierMultiplier    float64  `mapstructure:"outlier_multiplier" yaml:"outlier_multiplier" validate:"gt=0"`
	ConsistencyTolerance float64  `mapstructure:"consistency_tolerance" yaml:"consistency_tolerance" validate:"gt=0,lt=1"`
	MetricsTextfile      string   `mapstructure:"metrics_textfile" yaml:"metrics_textfile,omitempty"`
	ReportFormats        []string `mapstructure:"report_formats" yaml:"report_formats" validate:"dive,oneof=markdown json xlsx"`
	Tables               Tables   `mapstructure:"tables" yaml:"tables"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"workspace_dir", "store.driver", "store.dsn", "store.dir", "log_level", "log_format",
	"identity_column", "outlier_multiplier", "consistency_tolerance", "metrics_textfile",
	"report_formats", "tables.raw", "tables.cleaned", "tables.final",
}

func setDefaults(v *viper.Viper) {
	// every key needs a default so that env overrides reach Unmarshal
	v.SetDefault("workspace_dir", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.dir", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("identity_column", "customer_id")
	v.SetDefault("outlier_multiplier", 3.0)
	v.SetDefault("consistency_tolerance", 0.10)
	v.SetDefault("report_formats", []string{"markdown", "json"})
	v.SetDefault("tables.raw", "raw_customer_data")
	v.SetDefault("tables.cleaned", "cleaned_customer_data")
	v.SetDefault("tables.final", "final_customer_data")
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// DefaultPath returns ~/.retention/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".retention", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.retention/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is loaded into the environment first without overriding it.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgFile != "" && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env lists arrive as one comma separated string
	if len(c.ReportFormats) == 1 && strings.Contains(c.ReportFormats[0], ",") {
		c.ReportFormats = splitList(c.ReportFormats[0])
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Set assigns one key from its string form and validates the result.
func (c *Global) Set(key, val string) error {
	next := *c
	next.ReportFormats = append([]string(nil), c.ReportFormats...)
	switch key {
	case "workspace_dir":
		next.WorkspaceDir = val
	case "store.driver":
		next.Store.Driver = strings.ToLower(val)
	case "store.dsn":
		next.Store.DSN = val
	case "store.dir":
		next.Store.Dir = val
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	case "identity_column":
		next.IdentityColumn = val
	case "outlier_multiplier", "consistency_tolerance":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %w", key, err)
		}
		if key == "outlier_multiplier" {
			next.OutlierMultiplier = f
		} else {
			next.ConsistencyTolerance = f
		}
	case "metrics_textfile":
		next.MetricsTextfile = val
	case "report_formats":
		next.ReportFormats = splitList(val)
	case "tables.raw":
		next.Tables.Raw = val
	case "tables.cleaned":
		next.Tables.Cleaned = val
	case "tables.final":
		next.Tables.Final = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := Validate(&next); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get renders one key for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "workspace_dir":
		return c.WorkspaceDir, nil
	case "store.driver":
		return c.Store.Driver, nil
	case "store.dsn":
		return mask(c.Store.DSN), nil
	case "store.dir":
		return c.Store.Dir, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "identity_column":
		return c.IdentityColumn, nil
	case "outlier_multiplier":
		return strconv.FormatFloat(c.OutlierMultiplier, 'g', -1, 64), nil
	case "consistency_tolerance":
		return strconv.FormatFloat(c.ConsistencyTolerance, 'g', -1, 64), nil
	case "metrics_textfile":
		return c.MetricsTextfile, nil
	case "report_formats":
		return strings.Join(c.ReportFormats, ","), nil
	case "tables.raw":
		return c.Tables.Raw, nil
	case "tables.cleaned":
		return c.Tables.Cleaned, nil
	case "tables.final":
		return c.Tables.Final, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mask hides credentials embedded in a DSN.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
