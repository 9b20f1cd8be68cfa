package clean

import "github.com/KaramelBytes/retention-cli/internal/dataset"

// DefaultOutlierColumns are inspected when no list is configured.
var DefaultOutlierColumns = []string{ColTenure, ColMonthlyCharges, ColTotalCharges}

// OutlierResult is the fence and hit count for one column.
type OutlierResult struct {
	Column string        `json:"column"`
	Fence  dataset.Fence `json:"fence"`
	Count  int           `json:"count"`
	Values int           `json:"values"`
}

// DetectOutliers counts values outside [Q1-k*IQR, Q3+k*IQR] per column.
// Nothing is removed. Columns without numeric values are skipped.
func DetectOutliers(d *dataset.Dataset, cols []string, k float64) ([]OutlierResult, []dataset.Skip) {
	var (
		res   []OutlierResult
		skips []dataset.Skip
	)
	for _, c := range cols {
		if !d.Has(c) {
			skips = append(skips, dataset.MissingColumn("outlier_detection", c))
			continue
		}
		xs := d.Floats(c)
		if len(xs) == 0 {
			skips = append(skips, dataset.Skip{Computation: "outlier_detection", Reason: "column " + c + " has no numeric values"})
			continue
		}
		f := dataset.IQRFence(xs, k)
		res = append(res, OutlierResult{Column: c, Fence: f, Count: f.CountOutside(xs), Values: len(xs)})
	}
	return res, skips
}
