package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/utils"
)

// CSVStore keeps each table as <dir>/<table>.csv.
type CSVStore struct {
	dir string
}

// NewCSVStore creates dir if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		return nil, errors.New("csv store requires a directory")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

// Path returns the file backing table.
func (s *CSVStore) Path(table string) string { return filepath.Join(s.dir, table+".csv") }

func (s *CSVStore) Load(ctx context.Context, table string) (*dataset.Dataset, error) {
	if err := ValidTable(table); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := ReadCSVFile(s.Path(table), ',')
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	if err != nil {
		return nil, err
	}
	d.Name = table
	return d, nil
}

func (s *CSVStore) Save(ctx context.Context, table string, d *dataset.Dataset) error {
	if err := ValidTable(table); err != nil {
		return err
	}
	if err := checkDataset(d); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	if err := WriteCSV(&b, d); err != nil {
		return err
	}
	return utils.SafeWriteFile(s.Path(table), []byte(b.String()))
}

func (s *CSVStore) Count(ctx context.Context, table string) (int, error) {
	d, err := s.Load(ctx, table)
	if err != nil {
		return 0, err
	}
	return d.Len(), nil
}

func (s *CSVStore) Tables(context.Context) ([]string, error) {
	return listTables(s.dir, ".csv")
}

func (s *CSVStore) Close() error { return nil }

// ReadCSVFile reads a delimited file with a header row.
func ReadCSVFile(path string, comma rune) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d, err := ReadCSV(f, name, comma)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return d, nil
}

// ReadCSV parses delimited text with a header row. Cells are typed with
// dataset.Infer; empty cells become nil.
func ReadCSV(r io.Reader, name string, comma rune) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row: %w", dataset.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	d := dataset.New(name, header)
	if err := checkDataset(d); err != nil {
		return nil, err
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", d.Len()+1, err)
		}
		row := make(dataset.Record, len(header))
		for i, c := range header {
			row[c] = dataset.Infer(rec[i])
		}
		d.Append(row)
	}
	return d, nil
}

// WriteCSV writes d with a header row; nil cells are written empty.
func WriteCSV(w io.Writer, d *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(d.Columns))
	for _, r := range d.Rows {
		for i, c := range d.Columns {
			rec[i] = dataset.Format(r[c])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func listTables(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(out)
	return out, nil
}
