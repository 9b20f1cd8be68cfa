// Package store persists datasets as named tables in a directory of flat
// files, an Excel workbook per table, or a SQL database.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// Drivers understood by Open.
const (
	DriverCSV       = "csv"
	DriverXLSX      = "xlsx"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverCSV, DriverXLSX, DriverSQLite, DriverPostgres, DriverSnowflake}

// ErrTableNotFound is returned when loading a table that was never saved.
var ErrTableNotFound = errors.New("table not found")

// Loader reads a table into memory.
type Loader interface {
	Load(ctx context.Context, table string) (*dataset.Dataset, error)
}

// Saver replaces a table with the contents of a dataset.
type Saver interface {
	Save(ctx context.Context, table string, d *dataset.Dataset) error
}

// Store is a table persistence backend.
type Store interface {
	Loader
	Saver
	// Count returns the number of records in a saved table.
	Count(ctx context.Context, table string) (int, error)
	// Tables lists the saved tables in name order.
	Tables(ctx context.Context) ([]string, error)
	Close() error
}

// Querier runs ad-hoc SQL. Only SQL-backed stores implement it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*dataset.Dataset, error)
}

// Options selects and configures a backend.
type Options struct {
	Driver string
	// DSN is the database connection string for SQL drivers.
	DSN string
	// Dir holds table files for csv and xlsx, and the default sqlite database.
	Dir string
}

var reTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTable reports whether name is usable as a table or file name.
func ValidTable(name string) error {
	if !reTable.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// Open returns the backend named by opt.Driver.
func Open(ctx context.Context, opt Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opt.Driver)) {
	case "", DriverCSV:
		return NewCSVStore(opt.Dir)
	case DriverXLSX:
		return NewXLSXStore(opt.Dir)
	case DriverSQLite, DriverPostgres, DriverSnowflake:
		return OpenSQL(ctx, strings.ToLower(opt.Driver), opt.DSN, opt.Dir)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (use one of %s)", opt.Driver, strings.Join(Drivers, ", "))
	}
}

func checkDataset(d *dataset.Dataset) error {
	if d == nil {
		return dataset.ErrEmptyDataset
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	return nil
}
