package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/retention-cli/internal/analysis"
	"github.com/KaramelBytes/retention-cli/internal/audit"
)

// Workbook sheet names.
const (
	SheetSummary         = "Summary"
	SheetColumns         = "Columns"
	SheetInsights        = "Insights"
	SheetRecommendations = "Recommendations"
)

// Workbook lays the audit out as a spreadsheet. The caller closes the file.
func Workbook(r *audit.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetColumns, SheetInsights, SheetRecommendations} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	rows := map[string][][]any{
		SheetSummary:         summaryRows(r),
		SheetColumns:         columnRows(r),
		SheetInsights:        insightRows(r),
		SheetRecommendations: recommendationRows(r),
	}
	for sheet, data := range rows {
		for i, row := range data {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				_ = f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
			}
		}
	}
	return f, nil
}

// XLSX renders the workbook to bytes.
func XLSX(r *audit.Report) ([]byte, error) {
	f, err := Workbook(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryRows(r *audit.Report) [][]any {
	rows := [][]any{
		{"Metric", "Value"},
		{"Dataset", r.Dataset},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Records", r.Rows},
		{"Columns", r.Columns},
		{"Quality Score", r.Quality.Score},
		{"Rating", r.Quality.Rating},
		{"Completeness", r.Quality.Completeness},
	}
	if r.Quality.Uniqueness != nil {
		rows = append(rows, []any{"Uniqueness", *r.Quality.Uniqueness})
	}
	rows = append(rows,
		[]any{"Consistency", r.Quality.Consistency},
		[]any{"Missing Values", r.Missing.Total},
		[]any{"Duplicate Rows", r.Duplicates.Rows},
		[]any{"Anomalies", r.Anomalies.Count()},
		[]any{"Dashboard Ready", r.Readiness.Ready},
	)
	return rows
}

func columnRows(r *audit.Report) [][]any {
	rows := [][]any{{"Column", "Kind", "Type", "Non-Null", "Missing", "Unique", "Mean", "Median", "Std Dev", "Min", "Max", "Outliers"}}
	for _, c := range r.ColumnSummaries {
		row := []any{c.Name, c.Kind, c.DType, c.NonNull, c.Missing, c.Unique}
		if c.Kind == analysis.KindNumeric {
			row = append(row, c.Mean, c.Median, c.Std, c.Min, c.Max, c.OutliersCount)
		}
		rows = append(rows, row)
	}
	return rows
}

func insightRows(r *audit.Report) [][]any {
	in := r.Insights
	rows := [][]any{{"Insight", "Value", "Percent"}}
	if in.ChurnRate != nil {
		rows = append(rows, []any{"Churned Customers", *in.ChurnedCustomers, *in.ChurnRate})
	}
	if in.AvgTenure != nil {
		rows = append(rows, []any{"Average Tenure", *in.AvgTenure})
	}
	if in.AvgMonthlyCharges != nil {
		rows = append(rows, []any{"Average Monthly Charges", *in.AvgMonthlyCharges})
	}
	if in.TotalMonthlyRevenue != "" {
		rows = append(rows, []any{"Total Monthly Revenue", in.TotalMonthlyRevenue})
	}
	if in.HighRiskCustomers != nil {
		rows = append(rows, []any{"High-Risk Customers", *in.HighRiskCustomers, *in.HighRiskPercent})
	}
	if in.AvgRetentionScore != nil {
		rows = append(rows, []any{"Average Retention Score", *in.AvgRetentionScore})
	}
	for _, s := range in.ContractDistribution {
		rows = append(rows, []any{"Contract: " + s.Value, s.Count, s.Percent})
	}
	for _, s := range in.SegmentDistribution {
		rows = append(rows, []any{"Segment: " + s.Value, s.Count, s.Percent})
	}
	return rows
}

func recommendationRows(r *audit.Report) [][]any {
	rows := [][]any{{"#", "Recommendation"}}
	for i, rec := range r.Recommendations {
		rows = append(rows, []any{i + 1, rec})
	}
	rows = append(rows, []any{}, []any{"Check", "Passed", "Detail"})
	for _, c := range r.Readiness.Checks {
		rows = append(rows, []any{c.Name, c.Passed, c.Detail})
	}
	return rows
}
