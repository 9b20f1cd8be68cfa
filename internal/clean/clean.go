// Package clean repairs raw customer records: column names are normalized,
// numeric fields coerced, total_charges imputed, duplicates removed and
// extreme values reported.
package clean

import (
	"go.uber.org/zap"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// StageName is used for logging and error attribution.
const StageName = "clean"

// Options controls cleaning behavior.
type Options struct {
	// IdentityColumn is the key for the second dedup pass (after normalization).
	IdentityColumn string
	// OutlierMultiplier scales the IQR fence; 3 flags only extreme values.
	OutlierMultiplier float64
	OutlierColumns    []string
}

// DefaultOptions returns the production cleaning settings.
func DefaultOptions() Options {
	return Options{
		IdentityColumn:    ColCustomerID,
		OutlierMultiplier: 3,
		OutlierColumns:    DefaultOutlierColumns,
	}
}

// Report summarizes one cleaning run.
type Report struct {
	InitialRows   int               `json:"initial_rows"`
	FinalRows     int               `json:"final_rows"`
	RenamedCols   map[string]string `json:"renamed_columns,omitempty"`
	MissingBefore int               `json:"missing_before"`
	MissingAfter  int               `json:"missing_after"`
	Coercions     []CoercionReport  `json:"coercions,omitempty"`
	Imputation    *ImputeReport     `json:"imputation,omitempty"`
	Duplicates    DedupReport       `json:"duplicates"`
	Outliers      []OutlierResult   `json:"outliers,omitempty"`
	Skipped       []dataset.Skip    `json:"skipped,omitempty"`
}

// Run executes the clean stage and returns a new dataset. The input is not
// modified. Only an empty input is fatal; absent optional columns are
// recorded in Report.Skipped.
func Run(in *dataset.Dataset, opt Options, log *zap.Logger) (*dataset.Dataset, *Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := dataset.Validate(StageName, in); err != nil {
		return nil, nil, err
	}
	if opt.OutlierMultiplier <= 0 {
		opt.OutlierMultiplier = 3
	}
	if opt.OutlierColumns == nil {
		opt.OutlierColumns = DefaultOutlierColumns
	}

	rep := &Report{InitialRows: in.Len(), MissingBefore: in.TotalMissing()}
	d := NormalizeSchema(in)
	for i, c := range in.Columns {
		if d.Columns[i] != c {
			if rep.RenamedCols == nil {
				rep.RenamedCols = make(map[string]string)
			}
			rep.RenamedCols[c] = d.Columns[i]
		}
	}
	log.Debug("schema normalized", zap.Int("renamed", len(rep.RenamedCols)))

	rep.Skipped = append(rep.Skipped, StandardizeCategoricals(d)...)

	coercions, skips := CoerceTypes(d)
	rep.Coercions = coercions
	rep.Skipped = append(rep.Skipped, skips...)
	for _, c := range coercions {
		if c.Failed > 0 {
			log.Warn("values could not be coerced", zap.String("column", c.Column), zap.Int("failed", c.Failed))
		}
	}

	if res := ImputeTotalCharges(d); res.OK() {
		imp := res.Value
		rep.Imputation = &imp
		log.Info("imputed total_charges", zap.Int("missing", imp.MissingBefore), zap.Int("imputed", imp.Imputed))
		if imp.Unrecoverable > 0 {
			log.Warn("total_charges left missing", zap.Int("rows", imp.Unrecoverable))
		}
	} else {
		rep.Skipped = append(rep.Skipped, *res.Skipped)
		log.Warn("imputation skipped", zap.String("reason", res.Skipped.Reason))
	}

	d, rep.Duplicates = Deduplicate(d, opt.IdentityColumn)
	if opt.IdentityColumn != "" && rep.Duplicates.IdentityColumn == "" {
		rep.Skipped = append(rep.Skipped, dataset.MissingColumn("identity_deduplication", opt.IdentityColumn))
	}
	log.Info("removed duplicates",
		zap.Int("exact", rep.Duplicates.ExactRemoved),
		zap.Int("identity", rep.Duplicates.IdentityRemoved))

	outliers, skips := DetectOutliers(d, opt.OutlierColumns, opt.OutlierMultiplier)
	rep.Outliers = outliers
	rep.Skipped = append(rep.Skipped, skips...)
	for _, o := range outliers {
		if o.Count > 0 {
			log.Info("outliers detected", zap.String("column", o.Column), zap.Int("count", o.Count))
		}
	}

	rep.FinalRows = d.Len()
	rep.MissingAfter = d.TotalMissing()
	log.Info("cleaning finished",
		zap.Int("initial_rows", rep.InitialRows),
		zap.Int("final_rows", rep.FinalRows),
		zap.Int("skipped", len(rep.Skipped)))
	return d, rep, nil
}
