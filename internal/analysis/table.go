package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// Options controls profiling behavior for a dataset.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// SampleValues is the number of distinct example values kept per column.
	SampleValues int
	// TopValues caps the categorical frequency table per column.
	TopValues int
	// MaxCategories: string columns with more distinct values are profiled as text.
	MaxCategories int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outliers counts values outside the IQR fence scaled by OutlierMultiplier.
	Outliers          bool
	OutlierMultiplier float64
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		SampleRows:        5,
		SampleValues:      3,
		TopValues:         3,
		MaxCategories:     50,
		Outliers:          true,
		OutlierMultiplier: 3,
	}
}

// Kinds a column can be profiled as.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindBoolean     = "boolean"
	KindUnknown     = "unknown"
)

// Report is a structured profile of a dataset.
type Report struct {
	Name     string          `json:"name"`
	Rows     int             `json:"rows"`
	Cols     []ColumnSummary `json:"columns"`
	Samples  [][]string      `json:"samples,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Groups   []GroupResult   `json:"groups,omitempty"`
	Corr     *CorrMatrix     `json:"correlations,omitempty"`
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`  // numeric|datetime|categorical|text|boolean|unknown
	DType   string   `json:"dtype"` // int64|float64|string|bool|mixed|empty
	NonNull int      `json:"non_null"`
	Missing int      `json:"missing"`
	Unique  int      `json:"unique"`
	Samples []string `json:"samples,omitempty"`
	// Numeric stats
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Median float64 `json:"median,omitempty"`
	Std    float64 `json:"std,omitempty"`
	// Outliers (IQR fence)
	OutliersCount int            `json:"outliers_count,omitempty"`
	Fence         *dataset.Fence `json:"fence,omitempty"`
	// Categorical top values
	TopValues    []CategoryCount `json:"top_values,omitempty"`
	ExampleTexts []string        `json:"example_texts,omitempty"`
}

// CategoryCount is a value and its frequency.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string                `json:"key"`
	Size    int                   `json:"size"`
	Metrics map[string]NumSummary `json:"metrics"` // by column name
}

type NumSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// colAcc accumulates one column in a single pass.
type colAcc struct {
	name    string
	nonNil  int
	miss    int
	ints    int
	floats  int
	strs    int
	bools   int
	dates   int
	nums    []float64
	cats    map[string]int
	samples []string
	exText  []string
}

// Profile summarizes every column of d. It never modifies d.
func Profile(d *dataset.Dataset, opt Options) *Report {
	rep := &Report{}
	if d == nil {
		return rep
	}
	rep.Name = d.Name
	rep.Rows = d.Len()
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.SampleValues <= 0 {
		opt.SampleValues = 3
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 3
	}
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = 50
	}
	if opt.OutlierMultiplier <= 0 {
		opt.OutlierMultiplier = 3
	}

	cols := make([]*colAcc, len(d.Columns))
	for i, name := range d.Columns {
		cols[i] = &colAcc{name: name, cats: make(map[string]int)}
	}
	for ri, r := range d.Rows {
		if ri < opt.SampleRows {
			row := make([]string, len(d.Columns))
			for j, name := range d.Columns {
				row[j] = dataset.Format(r[name])
			}
			rep.Samples = append(rep.Samples, row)
		}
		for j, name := range d.Columns {
			cols[j].add(r[name], opt.SampleValues)
		}
	}

	rep.Cols = make([]ColumnSummary, 0, len(cols))
	var numCols []int
	for idx, c := range cols {
		s := c.summarize(opt)
		if s.Kind == KindNumeric {
			numCols = append(numCols, idx)
		}
		if s.DType == "mixed" {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s mixes value types", c.name))
		}
		rep.Cols = append(rep.Cols, s)
	}

	if len(opt.GroupBy) > 0 {
		rep.Groups = groupBy(d, opt.GroupBy, numCols)
	}
	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = correlations(d, numCols)
	}
	return rep
}

func (c *colAcc) add(v any, sampleValues int) {
	if dataset.IsMissing(v) {
		c.miss++
		return
	}
	c.nonNil++
	switch t := v.(type) {
	case int64, int, int32:
		c.ints++
		f, _ := dataset.AsFloat(t)
		c.nums = append(c.nums, f)
	case float64, float32:
		c.floats++
		f, _ := dataset.AsFloat(t)
		c.nums = append(c.nums, f)
	case bool:
		c.bools++
		c.cats[dataset.Format(t)]++
	case string:
		c.strs++
		if _, ok := parseTimeMaybe(strings.TrimSpace(t)); ok {
			c.dates++
		}
		if len(c.cats) <= 10000 { // guard memory
			c.cats[t]++
		}
		if len(c.exText) < 3 {
			c.exText = append(c.exText, t)
		}
	}
	if len(c.samples) < sampleValues {
		s := dataset.Format(v)
		for _, e := range c.samples {
			if e == s {
				return
			}
		}
		c.samples = append(c.samples, s)
	}
}

func (c *colAcc) dtype() string {
	kinds := 0
	var last string
	for _, k := range []struct {
		n    int
		name string
	}{{c.ints, "int64"}, {c.floats, "float64"}, {c.strs, "string"}, {c.bools, "bool"}} {
		if k.n > 0 {
			kinds++
			last = k.name
		}
	}
	switch {
	case kinds == 0:
		return "empty"
	case kinds == 1:
		return last
	case c.strs == 0 && c.bools == 0:
		// ints and floats together are still numeric
		return "float64"
	default:
		return "mixed"
	}
}

func (c *colAcc) summarize(opt Options) ColumnSummary {
	s := ColumnSummary{Name: c.name, DType: c.dtype(), NonNull: c.nonNil, Missing: c.miss, Samples: c.samples}
	numCnt := c.ints + c.floats
	// Decide kind by predominant parsed type
	switch {
	case numCnt > 0 && numCnt >= c.strs && numCnt >= c.bools:
		s.Kind = KindNumeric
		distinct := map[float64]struct{}{}
		for _, x := range c.nums {
			distinct[x] = struct{}{}
		}
		s.Unique = len(distinct)
		s.Min = floats.Min(c.nums)
		s.Max = floats.Max(c.nums)
		if len(c.nums) > 1 {
			s.Mean, s.Std = stat.MeanStdDev(c.nums, nil)
		} else {
			s.Mean = c.nums[0]
		}
		s.Median = dataset.Median(c.nums)
		if opt.Outliers {
			f := dataset.IQRFence(c.nums, opt.OutlierMultiplier)
			s.Fence = &f
			s.OutliersCount = f.CountOutside(c.nums)
		}
	case c.bools > 0 && c.bools >= c.strs:
		s.Kind = KindBoolean
		s.Unique = len(c.cats)
		s.TopValues = topValues(c.cats, opt.TopValues)
	case c.dates > 0 && c.dates == c.strs:
		s.Kind = KindDatetime
		s.Unique = len(c.cats)
	case len(c.cats) > 0 && len(c.cats) <= opt.MaxCategories:
		s.Kind = KindCategorical
		s.Unique = len(c.cats)
		s.TopValues = topValues(c.cats, opt.TopValues)
	case c.strs > 0:
		s.Kind = KindText
		s.Unique = len(c.cats)
		s.ExampleTexts = c.exText
	default:
		s.Kind = KindUnknown
	}
	return s
}

// topValues orders by count descending, ties by value ascending.
func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

func groupBy(d *dataset.Dataset, keys []string, numCols []int) []GroupResult {
	type gAcc struct {
		size int
		vals map[int][]float64
	}
	var present []string
	for _, k := range keys {
		if d.Has(k) {
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return nil
	}
	groups := map[string]*gAcc{}
	for _, r := range d.Rows {
		parts := make([]string, 0, len(present))
		for _, k := range present {
			parts = append(parts, fmt.Sprintf("%s=%s", k, safeVal(dataset.Format(r[k]))))
		}
		key := strings.Join(parts, " | ")
		ga := groups[key]
		if ga == nil {
			ga = &gAcc{vals: map[int][]float64{}}
			groups[key] = ga
		}
		ga.size++
		for _, idx := range numCols {
			if x, ok := dataset.AsFloat(r[d.Columns[idx]]); ok {
				ga.vals[idx] = append(ga.vals[idx], x)
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for _, idx := range numCols {
			xs := ga.vals[idx]
			if len(xs) == 0 {
				continue
			}
			gr.Metrics[d.Columns[idx]] = NumSummary{Count: len(xs), Min: floats.Min(xs), Max: floats.Max(xs), Mean: stat.Mean(xs, nil)}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

// correlations uses rows where both columns are numeric.
func correlations(d *dataset.Dataset, numCols []int) *CorrMatrix {
	n := len(numCols)
	names := make([]string, n)
	for i, idx := range numCols {
		names[i] = d.Columns[idx]
	}
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var xs, ys []float64
			for _, r := range d.Rows {
				x, okx := dataset.AsFloat(r[names[a]])
				y, oky := dataset.AsFloat(r[names[b]])
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			var rv float64
			if len(xs) >= 2 {
				rv = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(rv) || math.IsInf(rv, 0) {
				rv = 0
			}
			mat[a][b], mat[b][a] = rv, rv
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

// TopPairs lists correlation pairs by |r| descending.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	if m == nil {
		return nil
	}
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Column returns the summary for name.
func (r *Report) Column(name string) (ColumnSummary, bool) {
	for _, c := range r.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// DTypeCounts tallies columns by dtype.
func (r *Report) DTypeCounts() map[string]int {
	out := map[string]int{}
	for _, c := range r.Cols {
		out[c.DType]++
	}
	return out
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
