package dataset

import (
	"strings"
)

// Record is one customer snapshot keyed by column name. Values are nil,
// string, int64, float64 or bool.
type Record map[string]any

// Dataset is an ordered collection of records sharing a column schema.
// Stages treat a Dataset they receive as immutable and return a new one.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Record
}

// New returns an empty dataset with the given column order.
func New(name string, columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Name: name, Columns: cols}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Has reports whether a column is part of the schema.
func (d *Dataset) Has(col string) bool {
	if d == nil {
		return false
	}
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Append adds a record. Keys outside the schema are kept but not exported.
func (d *Dataset) Append(r Record) {
	d.Rows = append(d.Rows, r)
}

// AddColumn appends a column to the schema if it is not already present.
func (d *Dataset) AddColumn(name string) {
	if !d.Has(name) {
		d.Columns = append(d.Columns, name)
	}
}

// Clone copies the schema and every record. Values are scalars, so a
// per-record map copy is enough to make the result independent.
func (d *Dataset) Clone() *Dataset {
	out := New(d.Name, d.Columns)
	out.Rows = make([]Record, len(d.Rows))
	for i, r := range d.Rows {
		cp := make(Record, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Column returns the raw values of a column in row order.
func (d *Dataset) Column(name string) []any {
	vals := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		vals[i] = r[name]
	}
	return vals
}

// Floats returns the numeric, non-missing values of a column in row order.
func (d *Dataset) Floats(name string) []float64 {
	out := make([]float64, 0, len(d.Rows))
	for _, r := range d.Rows {
		if f, ok := AsFloat(r[name]); ok {
			out = append(out, f)
		}
	}
	return out
}

// Missing counts null cells in a column.
func (d *Dataset) Missing(col string) int {
	n := 0
	for _, r := range d.Rows {
		if IsMissing(r[col]) {
			n++
		}
	}
	return n
}

// TotalMissing counts null cells across the whole schema.
func (d *Dataset) TotalMissing() int {
	n := 0
	for _, c := range d.Columns {
		n += d.Missing(c)
	}
	return n
}

// RowKey returns a canonical encoding of a record over the schema, used for
// whole-row duplicate detection.
func (d *Dataset) RowKey(r Record) string {
	var b strings.Builder
	for i, c := range d.Columns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(Canonical(r[c]))
	}
	return b.String()
}

// DuplicateRows counts records whose full content repeats an earlier record.
func (d *Dataset) DuplicateRows() int {
	seen := make(map[string]struct{}, len(d.Rows))
	dups := 0
	for _, r := range d.Rows {
		k := d.RowKey(r)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// DuplicateKeys counts records whose value in col repeats an earlier record.
func (d *Dataset) DuplicateKeys(col string) int {
	seen := make(map[string]struct{}, len(d.Rows))
	dups := 0
	for _, r := range d.Rows {
		k := Canonical(r[col])
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// Distinct counts distinct non-missing values in a column.
func (d *Dataset) Distinct(col string) int {
	seen := make(map[string]struct{})
	for _, r := range d.Rows {
		v := r[col]
		if IsMissing(v) {
			continue
		}
		seen[Canonical(v)] = struct{}{}
	}
	return len(seen)
}
