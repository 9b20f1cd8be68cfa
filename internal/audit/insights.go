package audit

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/retention-cli/internal/clean"
	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/features"
)

// Share is a category with its count and percentage of all records.
type Share struct {
	Value   string  `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Insights are business metrics, each present only when its source column is.
type Insights struct {
	ChurnRate            *float64 `json:"churn_rate,omitempty"` // percent
	ChurnedCustomers     *int     `json:"churned_customers,omitempty"`
	AvgTenure            *float64 `json:"avg_tenure,omitempty"`
	AvgMonthlyCharges    *float64 `json:"avg_monthly_charges,omitempty"`
	TotalMonthlyRevenue  string   `json:"total_monthly_revenue,omitempty"` // exact decimal, 2 places
	ContractDistribution []Share  `json:"contract_distribution,omitempty"`
	HighRiskCustomers    *int     `json:"high_risk_customers,omitempty"`
	HighRiskPercent      *float64 `json:"high_risk_percent,omitempty"`
	AvgRetentionScore    *float64 `json:"avg_retention_score,omitempty"`
	SegmentDistribution  []Share  `json:"segment_distribution,omitempty"`
}

type revenue struct {
	avg   float64
	total string
	err   error
}

// BuildInsights computes every insight whose columns exist and returns the
// skipped ones.
func BuildInsights(d *dataset.Dataset) (Insights, []dataset.Skip) {
	var (
		in    Insights
		skips []dataset.Skip
	)
	n := float64(d.Len())
	skip := func(s *dataset.Skip) { skips = append(skips, *s) }

	churn := dataset.Capability(d, "churn_rate", []string{clean.ColChurn}, func() int {
		c := 0
		for _, r := range d.Rows {
			if s, _ := dataset.AsString(r[clean.ColChurn]); s == "Yes" {
				c++
			}
		}
		return c
	})
	if churn.OK() {
		rate := float64(churn.Value) / n * 100
		in.ChurnedCustomers = &churn.Value
		in.ChurnRate = &rate
	} else {
		skip(churn.Skipped)
	}

	if r := meanOf(d, "avg_tenure", clean.ColTenure); r.OK() {
		in.AvgTenure = &r.Value
	} else {
		skip(r.Skipped)
	}

	rev := dataset.Capability(d, "monthly_revenue", []string{clean.ColMonthlyCharges}, func() revenue {
		xs := d.Floats(clean.ColMonthlyCharges)
		var out revenue
		if len(xs) > 0 {
			out.avg = stat.Mean(xs, nil)
		}
		out.total, out.err = decimalSum(xs)
		return out
	})
	switch {
	case !rev.OK():
		skip(rev.Skipped)
	case rev.Value.err != nil:
		skips = append(skips, dataset.Skip{Computation: "monthly_revenue", Reason: rev.Value.err.Error()})
	default:
		in.AvgMonthlyCharges = &rev.Value.avg
		in.TotalMonthlyRevenue = rev.Value.total
	}

	if r := distribution(d, "contract_distribution", clean.ColContract); r.OK() {
		in.ContractDistribution = r.Value
	} else {
		skip(r.Skipped)
	}

	risk := dataset.Capability(d, "high_risk_customers", []string{features.ColChurnRisk}, func() int {
		c := 0
		for _, r := range d.Rows {
			if v, ok := dataset.AsInt(r[features.ColChurnRisk]); ok && v == 1 {
				c++
			}
		}
		return c
	})
	if risk.OK() {
		pct := float64(risk.Value) / n * 100
		in.HighRiskCustomers = &risk.Value
		in.HighRiskPercent = &pct
	} else {
		skip(risk.Skipped)
	}

	if r := meanOf(d, "avg_retention_score", features.ColRetentionScore); r.OK() {
		in.AvgRetentionScore = &r.Value
	} else {
		skip(r.Skipped)
	}

	if r := distribution(d, "segment_distribution", features.ColValueSegment); r.OK() {
		in.SegmentDistribution = r.Value
	} else {
		skip(r.Skipped)
	}
	return in, skips
}

func meanOf(d *dataset.Dataset, computation, col string) dataset.Result[float64] {
	return dataset.Capability(d, computation, []string{col}, func() float64 {
		xs := d.Floats(col)
		if len(xs) == 0 {
			return 0
		}
		return stat.Mean(xs, nil)
	})
}

// distribution counts every value of col, most frequent first, ties by value.
func distribution(d *dataset.Dataset, computation, col string) dataset.Result[[]Share] {
	return dataset.Capability(d, computation, []string{col}, func() []Share {
		counts := map[string]int{}
		for _, r := range d.Rows {
			v := r[col]
			if dataset.IsMissing(v) {
				continue
			}
			counts[dataset.Format(v)]++
		}
		return shares(counts, d.Len(), 0)
	})
}

func shares(counts map[string]int, total, limit int) []Share {
	out := make([]Share, 0, len(counts))
	for v, c := range counts {
		p := 0.0
		if total > 0 {
			p = float64(c) / float64(total) * 100
		}
		out = append(out, Share{Value: v, Count: c, Percent: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// decimalSum adds values as exact decimals and rounds half up to cents.
func decimalSum(xs []float64) (string, error) {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	var total apd.Decimal
	for _, x := range xs {
		var d apd.Decimal
		if _, _, err := d.SetString(strconv.FormatFloat(x, 'f', -1, 64)); err != nil {
			return "", fmt.Errorf("invalid decimal %v: %w", x, err)
		}
		if _, err := ctx.Add(&total, &total, &d); err != nil {
			return "", fmt.Errorf("sum revenue: %w", err)
		}
	}
	var cents apd.Decimal
	if _, err := ctx.Quantize(&cents, &total, -2); err != nil {
		return "", fmt.Errorf("round revenue: %w", err)
	}
	return cents.Text('f'), nil
}
