package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/utils"
)

// maxSheetName is the Excel limit on sheet title length.
const maxSheetName = 31

// XLSXStore keeps each table as a single-sheet workbook <dir>/<table>.xlsx.
type XLSXStore struct {
	dir string
}

// NewXLSXStore creates dir if needed.
func NewXLSXStore(dir string) (*XLSXStore, error) {
	if dir == "" {
		return nil, errors.New("xlsx store requires a directory")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	return &XLSXStore{dir: dir}, nil
}

// Path returns the workbook backing table.
func (s *XLSXStore) Path(table string) string { return filepath.Join(s.dir, table+".xlsx") }

func (s *XLSXStore) Load(ctx context.Context, table string) (*dataset.Dataset, error) {
	if err := ValidTable(table); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(table)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", table, ErrTableNotFound)
	}
	d, err := ReadXLSXFile(path, "")
	if err != nil {
		return nil, err
	}
	d.Name = table
	return d, nil
}

func (s *XLSXStore) Save(ctx context.Context, table string, d *dataset.Dataset) error {
	if err := ValidTable(table); err != nil {
		return err
	}
	if err := checkDataset(d); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeXLSX(d, table)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(s.Path(table), data)
}

func (s *XLSXStore) Count(ctx context.Context, table string) (int, error) {
	d, err := s.Load(ctx, table)
	if err != nil {
		return 0, err
	}
	return d.Len(), nil
}

func (s *XLSXStore) Tables(context.Context) ([]string, error) {
	return listTables(s.dir, ".xlsx")
}

func (s *XLSXStore) Close() error { return nil }

// ReadXLSXFile reads one sheet with a header row. An empty sheet name selects
// the first sheet.
func ReadXLSXFile(path, sheet string) (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: no sheets: %w", path, dataset.ErrEmptyDataset)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: missing header row: %w", sheet, dataset.ErrEmptyDataset)
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d := dataset.New(name, header)
	if err := checkDataset(d); err != nil {
		return nil, err
	}
	for _, cells := range rows[1:] {
		row := make(dataset.Record, len(header))
		for i, c := range header {
			var raw string
			if i < len(cells) {
				raw = cells[i]
			}
			row[c] = dataset.Infer(raw)
		}
		d.Append(row)
	}
	return d, nil
}

// EncodeXLSX writes d to a workbook with a single sheet named after table.
func EncodeXLSX(d *dataset.Dataset, table string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := table
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(d.Columns))
	for i, c := range d.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, r := range d.Rows {
		vals := make([]any, len(d.Columns))
		for j, c := range d.Columns {
			if v := r[c]; !dataset.IsMissing(v) {
				vals[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
