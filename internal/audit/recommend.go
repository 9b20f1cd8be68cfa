package audit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/analysis"
	"github.com/KaramelBytes/retention-cli/internal/clean"
)

// Recommendation thresholds, in percent of records.
const (
	ChurnPriorityPercent   = 25.0
	HighRiskSegmentPercent = 20.0
)

// Recommendation texts.
const (
	RecMissing      = "Investigate and address missing values in critical columns"
	RecDuplicates   = "Review and remove duplicate records"
	RecChurn        = "Priority: Churn rate exceeds 25% - implement retention strategies"
	RecHighRisk     = "Focus on high-risk customer segment (>20% of base)"
	RecInconsistent = "Reconcile total_charges with monthly_charges x tenure for inconsistent records"
	RecReady        = "Data quality is excellent - ready for analysis"
)

// Recommend applies the fixed rules to an assembled report.
func Recommend(r *Report) []string {
	var out []string
	if r.Missing.Total > 0 {
		out = append(out, RecMissing)
	}
	if r.Duplicates.Rows > 0 || (r.Duplicates.Identity != nil && *r.Duplicates.Identity > 0) {
		out = append(out, RecDuplicates)
	}
	if r.Insights.ChurnRate != nil && *r.Insights.ChurnRate > ChurnPriorityPercent {
		out = append(out, RecChurn)
	}
	if r.Insights.HighRiskPercent != nil && *r.Insights.HighRiskPercent > HighRiskSegmentPercent {
		out = append(out, RecHighRisk)
	}
	if c := r.Anomalies.Consistency; c != nil && c.Inconsistent > 0 {
		out = append(out, RecInconsistent)
	}
	if len(out) == 0 {
		out = append(out, RecReady)
	}
	return out
}

// Check is one dashboard readiness test.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Readiness reports whether the dataset can be loaded into a BI dashboard as is.
type Readiness struct {
	Ready  bool    `json:"ready"`
	Checks []Check `json:"checks"`
}

var reColumnName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CheckReadiness inspects names, completeness, type consistency and text encoding.
func CheckReadiness(r *Report, prof *analysis.Report) Readiness {
	var checks []Check

	var badNames []string
	for _, c := range prof.Cols {
		if !reColumnName.MatchString(c.Name) || clean.SnakeCase(c.Name) != c.Name {
			badNames = append(badNames, c.Name)
		}
	}
	checks = append(checks, Check{
		Name:   "No special characters in column names",
		Passed: len(badNames) == 0,
		Detail: listDetail(badNames),
	})

	checks = append(checks, Check{
		Name:   "No missing values",
		Passed: r.Missing.Total == 0,
		Detail: countDetail(r.Missing.Total, "missing cells"),
	})

	var mixed []string
	for _, c := range prof.Cols {
		if c.DType == "mixed" {
			mixed = append(mixed, c.Name)
		}
	}
	checks = append(checks, Check{
		Name:   "Consistent data types",
		Passed: len(mixed) == 0,
		Detail: listDetail(mixed),
	})

	var padded []string
	for _, c := range prof.Cols {
		for _, tv := range c.TopValues {
			if tv.Value != strings.TrimSpace(tv.Value) {
				padded = append(padded, c.Name)
				break
			}
		}
	}
	checks = append(checks, Check{
		Name:   "Categorical fields properly encoded",
		Passed: len(padded) == 0,
		Detail: listDetail(padded),
	})

	rd := Readiness{Ready: true, Checks: checks}
	for _, c := range checks {
		if !c.Passed {
			rd.Ready = false
		}
	}
	return rd
}

func listDetail(cols []string) string {
	if len(cols) == 0 {
		return ""
	}
	return "columns: " + strings.Join(cols, ", ")
}

func countDetail(n int, what string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", n, what)
}
