package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	sf "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/utils"
)

// SQLiteFile is the database file created under the store dir when no DSN is set.
const SQLiteFile = "retention.db"

const pingTimeout = 10 * time.Second

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
	sqlx.BindDriver(DriverSnowflake, sqlx.QUESTION)
}

// SQLStore keeps tables in a SQL database through sqlx.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// OpenSQL connects and pings the database. For sqlite an empty dsn means
// <dir>/retention.db; for snowflake it is built from SNOWFLAKE_* variables.
func OpenSQL(ctx context.Context, driver, dsn, dir string) (*SQLStore, error) {
	var err error
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			if dir == "" {
				return nil, errors.New("sqlite store requires a dsn or directory")
			}
			if err := utils.EnsureDir(dir); err != nil {
				return nil, fmt.Errorf("ensure database dir: %w", err)
			}
			dsn = filepath.Join(dir, SQLiteFile)
		}
	case DriverSnowflake:
		if dsn == "" {
			if dsn, err = snowflakeDSNFromEnv(); err != nil {
				return nil, err
			}
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres store requires a dsn")
		}
	default:
		return nil, fmt.Errorf("not a sql driver: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func snowflakeDSNFromEnv() (string, error) {
	cfg := &sf.Config{
		Account:   os.Getenv("SNOWFLAKE_ACCOUNT"),
		User:      os.Getenv("SNOWFLAKE_USER"),
		Password:  os.Getenv("SNOWFLAKE_PASSWORD"),
		Database:  os.Getenv("SNOWFLAKE_DATABASE"),
		Schema:    os.Getenv("SNOWFLAKE_SCHEMA"),
		Warehouse: os.Getenv("SNOWFLAKE_WAREHOUSE"),
		Role:      os.Getenv("SNOWFLAKE_ROLE"),
	}
	if cfg.Account == "" || cfg.User == "" {
		return "", errors.New("snowflake store requires a dsn or SNOWFLAKE_ACCOUNT and SNOWFLAKE_USER")
	}
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return "", fmt.Errorf("build snowflake dsn: %w", err)
	}
	return dsn, nil
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sqlx.DB { return s.db }

// Driver returns the driver name the store was opened with.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) Close() error { return s.db.Close() }

// Save replaces table with d inside one transaction.
func (s *SQLStore) Save(ctx context.Context, table string, d *dataset.Dataset) error {
	if err := ValidTable(table); err != nil {
		return err
	}
	if err := checkDataset(d); err != nil {
		return err
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("save %s: no columns", table)
	}
	kinds := make([]colKind, len(d.Columns))
	defs := make([]string, len(d.Columns))
	names := make([]string, len(d.Columns))
	marks := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		kinds[i] = kindOf(d, c)
		names[i] = quoteIdent(c)
		defs[i] = names[i] + " " + s.sqlType(kinds[i])
		marks[i] = "?"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	insert := tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", ")))
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(d.Columns))
	for i, r := range d.Rows {
		for j, c := range d.Columns {
			args[j] = sqlValue(r[c], kinds[j])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, table string) (*dataset.Dataset, error) {
	if err := s.exists(ctx, table); err != nil {
		return nil, err
	}
	d, err := s.Query(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, err
	}
	d.Name = table
	return d, nil
}

func (s *SQLStore) Count(ctx context.Context, table string) (int, error) {
	if err := s.exists(ctx, table); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLStore) Tables(ctx context.Context) ([]string, error) {
	q := "SELECT table_name FROM information_schema.tables WHERE table_schema = CURRENT_SCHEMA() ORDER BY table_name"
	if s.driver == DriverSQLite {
		q = "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name"
	}
	var out []string
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return out, nil
}

// Query runs a statement written with ? placeholders and returns its rows.
func (s *SQLStore) Query(ctx context.Context, query string, args ...any) (*dataset.Dataset, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	numeric := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			numeric[i] = isNumericType(ct.DatabaseTypeName())
		}
	}
	d := dataset.New("query", cols)
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", d.Len()+1, err)
		}
		r := make(dataset.Record, len(cols))
		for i, c := range cols {
			r[c] = fromSQL(vals[i], numeric[i])
		}
		d.Append(r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return d, nil
}

func (s *SQLStore) exists(ctx context.Context, table string) error {
	if err := ValidTable(table); err != nil {
		return err
	}
	tables, err := s.Tables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", table, ErrTableNotFound)
}

type colKind int

const (
	kindText colKind = iota
	kindInt
	kindFloat
	kindBool
)

// kindOf picks the narrowest column type holding every non-null value.
func kindOf(d *dataset.Dataset, col string) colKind {
	var ints, floats, bools, other int
	for _, r := range d.Rows {
		switch v := r[col]; v.(type) {
		case nil:
		case int64, int, int32:
			ints++
		case float64, float32:
			if dataset.IsMissing(v) {
				continue
			}
			floats++
		case bool:
			bools++
		default:
			other++
		}
	}
	switch {
	case other > 0, bools > 0 && ints+floats > 0:
		return kindText
	case bools > 0:
		return kindBool
	case floats > 0:
		return kindFloat
	case ints > 0:
		return kindInt
	}
	return kindText
}

func (s *SQLStore) sqlType(k colKind) string {
	switch s.driver {
	case DriverPostgres:
		return [...]string{"TEXT", "BIGINT", "DOUBLE PRECISION", "BOOLEAN"}[k]
	case DriverSnowflake:
		return [...]string{"VARCHAR", "NUMBER(38,0)", "FLOAT", "BOOLEAN"}[k]
	default:
		return [...]string{"TEXT", "INTEGER", "REAL", "INTEGER"}[k]
	}
}

func sqlValue(v any, k colKind) any {
	if dataset.IsMissing(v) {
		return nil
	}
	switch k {
	case kindText:
		return dataset.Format(v)
	case kindFloat:
		f, _ := dataset.AsFloat(v)
		return f
	}
	return v
}

// isNumericType reports whether a driver column type holds numbers. Snowflake
// reports NUMBER as FIXED and may deliver its values as strings.
func isNumericType(name string) bool {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" || strings.HasPrefix(n, "INTERVAL") || strings.HasPrefix(n, "POINT") {
		return false
	}
	for _, p := range []string{"INT", "BIGINT", "SMALLINT", "TINYINT", "SERIAL", "BIGSERIAL"} {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	for _, k := range []string{"NUMBER", "NUMERIC", "DECIMAL", "FIXED", "FLOAT", "REAL", "DOUBLE"} {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}

// fromSQL converts a scanned value to a dataset value. Strings from numeric
// columns are parsed back into numbers.
func fromSQL(v any, numeric bool) any {
	switch t := v.(type) {
	case string:
		if numeric {
			return dataset.Infer(strings.TrimSpace(t))
		}
	case []byte:
		return dataset.Infer(string(t))
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
