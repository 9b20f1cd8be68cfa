package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// FileReader reads a source data file into a dataset.
type FileReader interface {
	CanRead(filename string) bool
	Read(path string) (*dataset.Dataset, error)
}

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

func (csvReader) Read(path string) (*dataset.Dataset, error) { return ReadCSVFile(path, ',') }

type tsvReader struct{}

func (tsvReader) CanRead(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".tsv")
}

func (tsvReader) Read(path string) (*dataset.Dataset, error) { return ReadCSVFile(path, '\t') }

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}

func (xlsxReader) Read(path string) (*dataset.Dataset, error) { return ReadXLSXFile(path, "") }

var readers []FileReader

// RegisterReader adds a source file reader.
func RegisterReader(r FileReader) {
	readers = append(readers, r)
}

// ReadFile selects a reader by file extension.
func ReadFile(path string) (*dataset.Dataset, error) {
	for _, r := range readers {
		if r.CanRead(path) {
			return r.Read(path)
		}
	}
	return nil, fmt.Errorf("unsupported source file type: %s", filepath.Ext(path))
}

func init() {
	RegisterReader(csvReader{})
	RegisterReader(tsvReader{})
	RegisterReader(xlsxReader{})
}
