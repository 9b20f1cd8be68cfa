package audit

import (
	"math"

	"github.com/KaramelBytes/retention-cli/internal/clean"
	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// DefaultConsistencyTolerance is the allowed relative deviation between
// total_charges and monthly_charges * tenure.
const DefaultConsistencyTolerance = 0.10

// Consistency is the outcome of the total_charges cross-check.
type Consistency struct {
	Tolerance       float64 `json:"tolerance"`
	Checked         int     `json:"checked"`
	Inconsistent    int     `json:"inconsistent"`
	ZeroDenominator int     `json:"zero_denominator"` // monthly_charges * tenure == 0, excluded
	Incomplete      int     `json:"incomplete"`       // null or non-numeric input, excluded
}

// Anomalies groups statistical and logical findings.
type Anomalies struct {
	Outliers    []clean.OutlierResult `json:"outliers,omitempty"`
	Consistency *Consistency          `json:"consistency,omitempty"`
}

// Count returns the number of distinct anomaly findings.
func (a Anomalies) Count() int {
	n := 0
	for _, o := range a.Outliers {
		if o.Count > 0 {
			n++
		}
	}
	if a.Consistency != nil && a.Consistency.Inconsistent > 0 {
		n++
	}
	return n
}

// CheckConsistency flags records whose total_charges deviates from
// monthly_charges * tenure by more than tol, relative to the product.
func CheckConsistency(d *dataset.Dataset, tol float64) dataset.Result[Consistency] {
	cols := []string{clean.ColTotalCharges, clean.ColMonthlyCharges, clean.ColTenure}
	return dataset.Capability(d, "consistency_check", cols, func() Consistency {
		c := Consistency{Tolerance: tol}
		for _, r := range d.Rows {
			total, ok1 := dataset.AsFloat(r[clean.ColTotalCharges])
			monthly, ok2 := dataset.AsFloat(r[clean.ColMonthlyCharges])
			tenure, ok3 := dataset.AsFloat(r[clean.ColTenure])
			if !ok1 || !ok2 || !ok3 {
				c.Incomplete++
				continue
			}
			expected := monthly * tenure
			if expected == 0 {
				c.ZeroDenominator++
				continue
			}
			c.Checked++
			if math.Abs(total-expected)/math.Abs(expected) > tol {
				c.Inconsistent++
			}
		}
		return c
	})
}

// DetectAnomalies recomputes outliers on d and runs the consistency check.
func DetectAnomalies(d *dataset.Dataset, multiplier, tol float64) (Anomalies, []dataset.Skip) {
	var a Anomalies
	outliers, skips := clean.DetectOutliers(d, clean.DefaultOutlierColumns, multiplier)
	a.Outliers = outliers
	if res := CheckConsistency(d, tol); res.OK() {
		c := res.Value
		a.Consistency = &c
	} else {
		skips = append(skips, *res.Skipped)
	}
	return a, skips
}
