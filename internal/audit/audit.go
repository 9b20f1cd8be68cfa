// Package audit scores the quality of a final customer dataset, detects
// anomalies and assembles the structured report consumed by renderers.
package audit

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/retention-cli/internal/analysis"
	"github.com/KaramelBytes/retention-cli/internal/clean"
	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// StageName is used for logging and error attribution.
const StageName = "audit"

// Options controls the audit.
type Options struct {
	IdentityColumn       string
	OutlierMultiplier    float64
	ConsistencyTolerance float64
	// Profile tunes the per-column summaries (group-by, correlations).
	Profile analysis.Options
	// Now stamps the report; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the production audit settings.
func DefaultOptions() Options {
	return Options{
		IdentityColumn:       clean.ColCustomerID,
		OutlierMultiplier:    3,
		ConsistencyTolerance: DefaultConsistencyTolerance,
		Profile:              analysis.DefaultOptions(),
		Now:                  time.Now,
	}
}

// ColumnCount is a column with a count and its share of rows.
type ColumnCount struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Missing summarizes null cells.
type Missing struct {
	Total    int           `json:"total"`
	Percent  float64       `json:"percent"` // of all cells
	ByColumn []ColumnCount `json:"by_column,omitempty"`
}

// Duplicates summarizes repeated records.
type Duplicates struct {
	Rows           int    `json:"rows"`
	IdentityColumn string `json:"identity_column,omitempty"`
	Identity       *int   `json:"identity,omitempty"`
}

// NumericDistribution describes one numeric column.
type NumericDistribution struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// CategoricalDistribution holds the top values of one categorical column.
type CategoricalDistribution struct {
	Column string  `json:"column"`
	Top    []Share `json:"top"`
}

// Report is the structured audit result. It contains only strings, numbers,
// booleans and lists so it serializes without loss.
type Report struct {
	Dataset         string                    `json:"dataset"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	Rows            int                       `json:"rows"`
	Columns         int                       `json:"columns"`
	Quality         Quality                   `json:"quality"`
	Missing         Missing                   `json:"missing"`
	Duplicates      Duplicates                `json:"duplicates"`
	DTypes          map[string]int            `json:"dtypes"`
	ColumnSummaries []analysis.ColumnSummary  `json:"column_summaries"`
	Numeric         []NumericDistribution     `json:"numeric_distributions,omitempty"`
	Categorical     []CategoricalDistribution `json:"categorical_distributions,omitempty"`
	Anomalies       Anomalies                 `json:"anomalies"`
	Insights        Insights                  `json:"insights"`
	Recommendations []string                  `json:"recommendations"`
	Readiness       Readiness                 `json:"readiness"`
	Skipped         []dataset.Skip            `json:"skipped,omitempty"`
	Profile         *analysis.Report          `json:"profile,omitempty"` // group-by and correlations, when requested
}

// Run audits d without modifying it. Only an absent or empty dataset is fatal.
func Run(d *dataset.Dataset, opt Options, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := dataset.Validate(StageName, d); err != nil {
		return nil, err
	}
	if opt.OutlierMultiplier <= 0 {
		opt.OutlierMultiplier = 3
	}
	if opt.ConsistencyTolerance <= 0 {
		opt.ConsistencyTolerance = DefaultConsistencyTolerance
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}

	rep := &Report{
		Dataset:     d.Name,
		GeneratedAt: opt.Now().UTC(),
		Rows:        d.Len(),
		Columns:     len(d.Columns),
	}

	rep.Quality = ScoreQuality(d, opt.IdentityColumn)
	log.Info("quality scored", zap.Float64("score", rep.Quality.Score), zap.String("rating", rep.Quality.Rating))
	if rep.Quality.Uniqueness == nil {
		rep.Skipped = append(rep.Skipped, dataset.MissingColumn("uniqueness_score", opt.IdentityColumn))
	}

	rep.Missing = missingSummary(d)
	for _, m := range rep.Missing.ByColumn {
		log.Warn("missing values", zap.String("column", m.Column), zap.Int("count", m.Count))
	}

	rep.Duplicates.Rows = d.DuplicateRows()
	if opt.IdentityColumn != "" && d.Has(opt.IdentityColumn) {
		n := d.DuplicateKeys(opt.IdentityColumn)
		rep.Duplicates.IdentityColumn = opt.IdentityColumn
		rep.Duplicates.Identity = &n
	}

	popt := opt.Profile
	popt.OutlierMultiplier = opt.OutlierMultiplier
	prof := analysis.Profile(d, popt)
	rep.DTypes = prof.DTypeCounts()
	rep.ColumnSummaries = prof.Cols
	rep.Numeric, rep.Categorical = distributions(prof, d)
	if len(prof.Groups) > 0 || prof.Corr != nil {
		rep.Profile = prof
	}

	var skips []dataset.Skip
	rep.Anomalies, skips = DetectAnomalies(d, opt.OutlierMultiplier, opt.ConsistencyTolerance)
	rep.Skipped = append(rep.Skipped, skips...)
	if n := rep.Anomalies.Count(); n > 0 {
		log.Warn("anomalies detected", zap.Int("findings", n))
	}

	rep.Insights, skips = BuildInsights(d)
	rep.Skipped = append(rep.Skipped, skips...)
	rep.Recommendations = Recommend(rep)
	rep.Readiness = CheckReadiness(rep, prof)

	log.Info("audit finished",
		zap.Int("rows", rep.Rows),
		zap.Int("missing", rep.Missing.Total),
		zap.Int("duplicates", rep.Duplicates.Rows),
		zap.Bool("ready", rep.Readiness.Ready),
		zap.Int("skipped", len(rep.Skipped)))
	return rep, nil
}

func missingSummary(d *dataset.Dataset) Missing {
	var m Missing
	rows := d.Len()
	for _, c := range d.Columns {
		n := d.Missing(c)
		if n == 0 {
			continue
		}
		m.Total += n
		m.ByColumn = append(m.ByColumn, ColumnCount{Column: c, Count: n, Percent: float64(n) / float64(rows) * 100})
	}
	sort.SliceStable(m.ByColumn, func(i, j int) bool { return m.ByColumn[i].Count > m.ByColumn[j].Count })
	if cells := rows * len(d.Columns); cells > 0 {
		m.Percent = float64(m.Total) / float64(cells) * 100
	}
	return m
}

const textTopValues = 3

func distributions(prof *analysis.Report, d *dataset.Dataset) ([]NumericDistribution, []CategoricalDistribution) {
	rows := d.Len()
	var (
		num []NumericDistribution
		cat []CategoricalDistribution
	)
	for _, c := range prof.Cols {
		switch c.Kind {
		case analysis.KindNumeric:
			num = append(num, NumericDistribution{Column: c.Name, Mean: c.Mean, Median: c.Median, Std: c.Std, Min: c.Min, Max: c.Max})
		case analysis.KindCategorical, analysis.KindBoolean:
			top := make([]Share, 0, len(c.TopValues))
			for _, tv := range c.TopValues {
				p := 0.0
				if rows > 0 {
					p = float64(tv.Count) / float64(rows) * 100
				}
				top = append(top, Share{Value: tv.Value, Count: tv.Count, Percent: p})
			}
			cat = append(cat, CategoricalDistribution{Column: c.Name, Top: top})
		case analysis.KindText:
			// High-cardinality strings carry no profile top values.
			counts := make(map[string]int)
			for _, v := range d.Column(c.Name) {
				if !dataset.IsMissing(v) {
					counts[dataset.Format(v)]++
				}
			}
			cat = append(cat, CategoricalDistribution{Column: c.Name, Top: shares(counts, rows, textTopValues)})
		}
	}
	return num, cat
}
