// Package report renders an audit report as Markdown, JSON and XLSX artifacts.
package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/retention-cli/internal/audit"
)

// maxDistributionColumns caps the numeric and categorical listings.
const maxDistributionColumns = 10

var printer = message.NewPrinter(language.English)

// Markdown renders the audit as the insights summary document.
func Markdown(r *audit.Report) string {
	var b strings.Builder
	b.WriteString("# DATA QUALITY AUDIT REPORT\n\n")
	b.WriteString(fmt.Sprintf("**Generated**: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Dataset**: %s\n", r.Dataset))
	b.WriteString(printer.Sprintf("**Records**: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("**Columns**: %d\n", r.Columns))
	b.WriteString("\n---\n\n")

	writeQuality(&b, r)
	writeMissing(&b, r)
	writeStructure(&b, r)
	writeDuplicates(&b, r)
	writeDistributions(&b, r)
	writeAnomalies(&b, r)
	writeInsights(&b, r)
	writeRecommendations(&b, r)
	writeReadiness(&b, r)

	if len(r.Skipped) > 0 {
		b.WriteString("## Skipped Computations\n\n")
		for _, s := range r.Skipped {
			b.WriteString(fmt.Sprintf("- %s: %s\n", s.Computation, s.Reason))
		}
		b.WriteString("\n")
	}
	if r.Profile != nil {
		b.WriteString("## Appendix: Column Profile\n\n```text\n")
		b.WriteString(r.Profile.Markdown())
		b.WriteString("```\n")
	}
	return b.String()
}

func writeQuality(b *strings.Builder, r *audit.Report) {
	q := r.Quality
	b.WriteString("## 1. Overall Data Quality Score\n\n")
	b.WriteString(fmt.Sprintf("**Quality Score**: %.2f/100\n", q.Score))
	rating := q.Rating
	if q.Score >= 95 {
		rating += " ✓"
	}
	b.WriteString(fmt.Sprintf("**Rating**: %s\n\n", rating))
	b.WriteString(fmt.Sprintf("- Completeness: %.2f\n", q.Completeness))
	if q.Uniqueness != nil {
		b.WriteString(fmt.Sprintf("- Uniqueness: %.2f\n", *q.Uniqueness))
	} else {
		b.WriteString("- Uniqueness: n/a (no identity column)\n")
	}
	b.WriteString(fmt.Sprintf("- Consistency: %.2f\n\n", q.Consistency))
}

func writeMissing(b *strings.Builder, r *audit.Report) {
	b.WriteString("## 2. Missing Data Analysis\n\n")
	b.WriteString(printer.Sprintf("- **Total Missing Values**: %d (%.2f%%)\n", r.Missing.Total, r.Missing.Percent))
	if r.Missing.Total == 0 {
		b.WriteString("- ✓ No missing values detected\n\n")
		return
	}
	b.WriteString("\n**Missing by Column**:\n\n")
	for _, m := range r.Missing.ByColumn {
		b.WriteString(fmt.Sprintf("- %s: %d (%.2f%%)\n", m.Column, m.Count, m.Percent))
	}
	b.WriteString("\n")
}

func writeStructure(b *strings.Builder, r *audit.Report) {
	b.WriteString("## 3. Data Types and Structure\n\n")
	b.WriteString("**Column Types**:\n\n")
	for _, dt := range sortedKeys(r.DTypes) {
		b.WriteString(fmt.Sprintf("- %s: %d columns\n", dt, r.DTypes[dt]))
	}
	b.WriteString("\n**Column Details**:\n\n")
	b.WriteString("| Column | Type | Unique Values | Sample Values |\n")
	b.WriteString("|--------|------|---------------|---------------|\n")
	for _, c := range r.ColumnSummaries {
		sample := strings.Join(c.Samples, ", ")
		if len(sample) > 40 {
			sample = sample[:37] + "..."
		}
		b.WriteString(printer.Sprintf("| %s | %s | %d | %s |\n", c.Name, c.DType, c.Unique, cell(sample)))
	}
	b.WriteString("\n")
}

func writeDuplicates(b *strings.Builder, r *audit.Report) {
	d := r.Duplicates
	b.WriteString("## 4. Duplicate Records\n\n")
	b.WriteString(fmt.Sprintf("- **Duplicate Rows**: %d\n", d.Rows))
	if d.Identity != nil {
		b.WriteString(fmt.Sprintf("- **Duplicate %s Values**: %d\n", d.IdentityColumn, *d.Identity))
	}
	if d.Rows == 0 && (d.Identity == nil || *d.Identity == 0) {
		b.WriteString("- ✓ No duplicates detected\n")
	}
	b.WriteString("\n")
}

func writeDistributions(b *strings.Builder, r *audit.Report) {
	b.WriteString("## 5. Data Distribution Analysis\n\n")
	b.WriteString("**Numerical Features**:\n")
	for i, n := range r.Numeric {
		if i == maxDistributionColumns {
			break
		}
		b.WriteString(fmt.Sprintf("\n**%s**:\n", n.Column))
		b.WriteString(fmt.Sprintf("- Mean: %.2f\n", n.Mean))
		b.WriteString(fmt.Sprintf("- Median: %.2f\n", n.Median))
		b.WriteString(fmt.Sprintf("- Std Dev: %.2f\n", n.Std))
		b.WriteString(fmt.Sprintf("- Range: [%.2f, %.2f]\n", n.Min, n.Max))
	}
	b.WriteString("\n**Categorical Features** (Top Categories):\n")
	for i, c := range r.Categorical {
		if i == maxDistributionColumns {
			break
		}
		b.WriteString(fmt.Sprintf("\n**%s**:\n", c.Column))
		for _, s := range c.Top {
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", s.Value, s.Count, s.Percent))
		}
	}
	b.WriteString("\n")
}

func writeAnomalies(b *strings.Builder, r *audit.Report) {
	b.WriteString("## 6. Anomaly Detection\n\n")
	found := false
	for _, o := range r.Anomalies.Outliers {
		if o.Count == 0 {
			continue
		}
		found = true
		b.WriteString(fmt.Sprintf("- %s: %d outliers detected (%.1f%%) outside [%.2f, %.2f]\n",
			o.Column, o.Count, percent(o.Count, r.Rows), o.Fence.Lower, o.Fence.Upper))
	}
	if c := r.Anomalies.Consistency; c != nil {
		if c.Inconsistent > 0 {
			found = true
			b.WriteString(fmt.Sprintf("- Total charges inconsistency: %d records (%.1f%%)\n",
				c.Inconsistent, percent(c.Inconsistent, r.Rows)))
		}
		if c.ZeroDenominator > 0 {
			b.WriteString(fmt.Sprintf("- Consistency check skipped %d records with zero monthly_charges x tenure\n", c.ZeroDenominator))
		}
	}
	if !found {
		b.WriteString("- ✓ No major anomalies detected\n")
	}
	b.WriteString("\n")
}

func writeInsights(b *strings.Builder, r *audit.Report) {
	in := r.Insights
	b.WriteString("## 7. Key Business Insights\n\n")
	if in.ChurnRate != nil {
		b.WriteString(fmt.Sprintf("- **Churn Rate**: %.1f%%\n", *in.ChurnRate))
	}
	if in.AvgTenure != nil {
		b.WriteString(fmt.Sprintf("- **Average Tenure**: %.1f months\n", *in.AvgTenure))
	}
	if in.AvgMonthlyCharges != nil {
		b.WriteString(fmt.Sprintf("- **Average Monthly Charges**: $%.2f\n", *in.AvgMonthlyCharges))
	}
	if in.TotalMonthlyRevenue != "" {
		b.WriteString(fmt.Sprintf("- **Total Monthly Revenue**: $%s\n", in.TotalMonthlyRevenue))
	}
	if len(in.ContractDistribution) > 0 {
		b.WriteString("\n**Contract Distribution**:\n")
		for _, s := range in.ContractDistribution {
			b.WriteString(fmt.Sprintf("  - %s: %d (%.1f%%)\n", s.Value, s.Count, s.Percent))
		}
		b.WriteString("\n")
	}
	if in.HighRiskCustomers != nil {
		b.WriteString(fmt.Sprintf("- **High-Risk Customers**: %d (%.1f%%)\n", *in.HighRiskCustomers, *in.HighRiskPercent))
	}
	if in.AvgRetentionScore != nil {
		b.WriteString(fmt.Sprintf("- **Average Retention Score**: %.1f/100\n", *in.AvgRetentionScore))
	}
	if len(in.SegmentDistribution) > 0 {
		b.WriteString("\n**Customer Value Segments**:\n")
		for _, s := range in.SegmentDistribution {
			b.WriteString(fmt.Sprintf("  - %s: %d (%.1f%%)\n", s.Value, s.Count, s.Percent))
		}
	}
	b.WriteString("\n")
}

func writeRecommendations(b *strings.Builder, r *audit.Report) {
	b.WriteString("## 8. Recommendations\n\n")
	for _, rec := range r.Recommendations {
		switch {
		case strings.HasPrefix(rec, "Priority:"):
			rec = "**Priority**:" + strings.TrimPrefix(rec, "Priority:")
		case rec == audit.RecReady:
			rec = "✓ " + rec
		}
		b.WriteString("- " + rec + "\n")
	}
	b.WriteString("\n")
}

func writeReadiness(b *strings.Builder, r *audit.Report) {
	b.WriteString("## 9. Dashboard Readiness\n\n")
	for _, c := range r.Readiness.Checks {
		mark := "✓"
		if !c.Passed {
			mark = "✗"
		}
		line := fmt.Sprintf("- %s %s", mark, c.Name)
		if c.Detail != "" {
			line += " (" + c.Detail + ")"
		}
		b.WriteString(line + "\n")
	}
	if r.Readiness.Ready {
		b.WriteString("- ✓ Ready for import into a BI dashboard\n")
	} else {
		b.WriteString("- ✗ Resolve the failed checks before dashboard import\n")
	}
	b.WriteString("\n")
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func cell(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
