package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

func profileFixture() *dataset.Dataset {
	d := dataset.New("final_customer_data", []string{"customer_id", "contract", "tenure", "monthly_charges", "churn", "mixed", "signup"})
	rows := []struct {
		id       string
		contract string
		tenure   int64
		monthly  float64
		churn    string
	}{
		{"C1", "Month-to-month", 1, 20, "Yes"},
		{"C2", "One year", 12, 55.5, "No"},
		{"C3", "Two year", 40, 80, "No"},
		{"C4", "Month-to-month", 3, 95, "Yes"},
		{"C5", "Month-to-month", 60, 30, "No"},
		{"C6", "One year", 24, 70, "No"},
		{"C7", "Two year", 72, 100, "No"},
		{"C8", "Month-to-month", 2, 45, "Yes"},
	}
	for i, r := range rows {
		rec := dataset.Record{
			"customer_id":     r.id,
			"contract":        r.contract,
			"tenure":          r.tenure,
			"monthly_charges": r.monthly,
			"churn":           r.churn,
			"signup":          "2024-01-0" + string(rune('1'+i)),
		}
		if i%2 == 0 {
			rec["mixed"] = int64(i)
		} else {
			rec["mixed"] = "x"
		}
		d.Append(rec)
	}
	d.Rows[7]["monthly_charges"] = nil
	return d
}

func TestProfileColumns(t *testing.T) {
	d := profileFixture()
	opt := DefaultOptions()
	opt.SampleRows = 2
	opt.MaxCategories = 5
	opt.GroupBy = []string{"contract"}
	opt.Correlations = true

	rep := Profile(d, opt)
	if rep.Rows != 8 || len(rep.Cols) != 7 {
		t.Fatalf("rows/cols = %d/%d", rep.Rows, len(rep.Cols))
	}
	if len(rep.Samples) != 2 || rep.Samples[0][0] != "C1" {
		t.Fatalf("samples = %#v", rep.Samples)
	}

	id := columnByName(t, rep, "customer_id")
	if id.Kind != KindText || id.Unique != 8 || len(id.ExampleTexts) != 3 {
		t.Fatalf("customer_id summary = %+v", id)
	}
	if len(id.Samples) != 3 {
		t.Fatalf("customer_id samples = %#v", id.Samples)
	}

	contract := columnByName(t, rep, "contract")
	if contract.Kind != KindCategorical || contract.DType != "string" {
		t.Fatalf("contract kind = %s/%s", contract.Kind, contract.DType)
	}
	want := []CategoryCount{{"Month-to-month", 4}, {"One year", 2}, {"Two year", 2}}
	if len(contract.TopValues) != 3 {
		t.Fatalf("top values = %#v", contract.TopValues)
	}
	for i := range want {
		if contract.TopValues[i] != want[i] {
			t.Fatalf("top[%d] = %#v, want %#v", i, contract.TopValues[i], want[i])
		}
	}

	tenure := columnByName(t, rep, "tenure")
	vals := []float64{1, 12, 40, 3, 60, 24, 72, 2}
	if tenure.Kind != KindNumeric || tenure.DType != "int64" {
		t.Fatalf("tenure kind = %s/%s", tenure.Kind, tenure.DType)
	}
	checkStats(t, tenure, vals)
	if tenure.Fence == nil {
		t.Fatalf("expected fence for tenure")
	}

	monthly := columnByName(t, rep, "monthly_charges")
	if monthly.Missing != 1 || monthly.NonNull != 7 {
		t.Fatalf("monthly missing = %d non-null = %d", monthly.Missing, monthly.NonNull)
	}

	mixed := columnByName(t, rep, "mixed")
	if mixed.DType != "mixed" {
		t.Fatalf("mixed dtype = %s", mixed.DType)
	}
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], "mixed") {
		t.Fatalf("warnings = %#v", rep.Warnings)
	}

	signup := columnByName(t, rep, "signup")
	if signup.Kind != KindDatetime {
		t.Fatalf("signup kind = %s", signup.Kind)
	}

	if len(rep.Groups) != 3 || rep.Groups[0].Key != "contract=Month-to-month" || rep.Groups[0].Size != 4 {
		t.Fatalf("groups = %#v", rep.Groups)
	}
	m := rep.Groups[0].Metrics["tenure"]
	if m.Count != 4 || !almostEqual(m.Mean, 16.5, 1e-9) {
		t.Fatalf("group tenure metrics = %+v", m)
	}

	if rep.Corr == nil || len(rep.Corr.Columns) != 3 {
		t.Fatalf("corr = %#v", rep.Corr)
	}
	if got := rep.Corr.Values[0][0]; got != 1 {
		t.Fatalf("diagonal = %v", got)
	}

	counts := rep.DTypeCounts()
	if counts["string"] != 4 || counts["int64"] != 1 || counts["float64"] != 1 || counts["mixed"] != 1 {
		t.Fatalf("dtype counts = %#v", counts)
	}
}

func TestProfileMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"contract"}
	opt.Correlations = true
	md := Profile(profileFixture(), opt).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"Table: final_customer_data",
		"Rows: 8",
		"- tenure: numeric/int64",
		"[GROUP-BY SUMMARY]",
		"contract=Month-to-month (n=4)",
		"[CORRELATIONS]",
		"[HEAD AND SAMPLE ROWS]",
		"[NOTES]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestProfileNil(t *testing.T) {
	rep := Profile(nil, DefaultOptions())
	if rep.Rows != 0 || len(rep.Cols) != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestTopValuesTieBreak(t *testing.T) {
	got := topValues(map[string]int{"b": 2, "a": 2, "c": 2, "d": 1}, 3)
	if got[0].Value != "a" || got[1].Value != "b" || got[2].Value != "c" {
		t.Fatalf("tie break order = %#v", got)
	}
}

func columnByName(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	c, ok := rep.Column(name)
	if !ok {
		t.Fatalf("column %s not found", name)
	}
	return c
}

func checkStats(t *testing.T, col ColumnSummary, vals []float64) {
	t.Helper()
	if !almostEqual(col.Min, minFloat(vals), 1e-9) {
		t.Fatalf("%s min = %v, want %v", col.Name, col.Min, minFloat(vals))
	}
	if !almostEqual(col.Max, maxFloat(vals), 1e-9) {
		t.Fatalf("%s max = %v, want %v", col.Name, col.Max, maxFloat(vals))
	}
	if !almostEqual(col.Mean, mean(vals), 1e-9) {
		t.Fatalf("%s mean = %v, want %v", col.Name, col.Mean, mean(vals))
	}
	if !almostEqual(col.Std, sampleStd(vals), 1e-9) {
		t.Fatalf("%s std = %v, want %v", col.Name, col.Std, sampleStd(vals))
	}
}

func mean(vals []float64) float64 {
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	ss := 0.0
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	out := math.Inf(1)
	for _, v := range vals {
		if v < out {
			out = v
		}
	}
	return out
}

func maxFloat(vals []float64) float64 {
	out := math.Inf(-1)
	for _, v := range vals {
		if v > out {
			out = v
		}
	}
	return out
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
