package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/retention-cli/internal/audit"
	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

func auditFixture(t *testing.T, churned int) *audit.Report {
	t.Helper()
	d := dataset.New("final_customer_data", []string{
		"customer_id", "tenure", "contract", "monthly_charges", "total_charges", "churn", "churn_risk_flag", "retention_score",
	})
	contracts := []string{"Month-to-month", "One year", "Two year", "One year"}
	for i := 0; i < 4; i++ {
		churn := "No"
		if i < churned {
			churn = "Yes"
		}
		tenure := int64(10 * (i + 1))
		monthly := 20.0 + float64(i)*10
		d.Append(dataset.Record{
			"customer_id":     string(rune('A' + i)),
			"tenure":          tenure,
			"contract":        contracts[i],
			"monthly_charges": monthly,
			"total_charges":   monthly * float64(tenure),
			"churn":           churn,
			"churn_risk_flag": int64(0),
			"retention_score": 50.0 + float64(i),
		})
	}
	opt := audit.DefaultOptions()
	opt.Now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	rep, err := audit.Run(d, opt, nil)
	require.NoError(t, err)
	return rep
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(auditFixture(t, 0))
	for _, want := range []string{
		"# DATA QUALITY AUDIT REPORT",
		"**Generated**: 2024-05-01 09:30:00",
		"**Records**: 4",
		"## 1. Overall Data Quality Score",
		"**Quality Score**: 100.00/100",
		"**Rating**: Excellent ✓",
		"## 2. Missing Data Analysis",
		"- ✓ No missing values detected",
		"## 3. Data Types and Structure",
		"| Column | Type | Unique Values | Sample Values |",
		"## 4. Duplicate Records",
		"- ✓ No duplicates detected",
		"## 5. Data Distribution Analysis",
		"## 6. Anomaly Detection",
		"- ✓ No major anomalies detected",
		"## 7. Key Business Insights",
		"- **Churn Rate**: 0.0%",
		"- **Total Monthly Revenue**: $140.00",
		"## 8. Recommendations",
		"- ✓ " + audit.RecReady,
		"## 9. Dashboard Readiness",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "Skipped Computations")
}

func TestMarkdownBoldsPriority(t *testing.T) {
	md := Markdown(auditFixture(t, 2))
	assert.Contains(t, md, "- **Priority**: Churn rate exceeds 25% - implement retention strategies")
	assert.Contains(t, md, "- **Churn Rate**: 50.0%")
}

func TestWriteAllFormats(t *testing.T) {
	rep := auditFixture(t, 1)
	dir := filepath.Join(t.TempDir(), "reports")

	paths, err := Write(rep, dir, []string{FormatMarkdown, FormatJSON, FormatXLSX})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	md, err := os.ReadFile(filepath.Join(dir, MarkdownFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# DATA QUALITY AUDIT REPORT"))

	raw, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "final_customer_data", decoded["dataset"])
	assert.Contains(t, decoded, "recommendations")

	f, err := excelize.OpenFile(filepath.Join(dir, XLSXFile))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetSummary, SheetColumns, SheetInsights, SheetRecommendations}, f.GetSheetList())
	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Metric", "Value"}, rows[0])
	assert.Equal(t, []string{"Dataset", "final_customer_data"}, rows[1])
	cols, err := f.GetRows(SheetColumns)
	require.NoError(t, err)
	assert.Len(t, cols, 1+rep.Columns)
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	_, err := Write(auditFixture(t, 0), t.TempDir(), []string{"pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}
