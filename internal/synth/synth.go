// Package synth generates a deterministic telecom customer dataset carrying
// the data quality problems the clean stage is built to repair.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// Columns in file order, named the way the upstream export names them.
var Columns = []string{
	"CustomerID", "Gender", "SeniorCitizen", "Partner", "Dependents", "Tenure",
	"PhoneService", "MultipleLines", "InternetService", "OnlineSecurity", "OnlineBackup",
	"DeviceProtection", "TechSupport", "StreamingTV", "StreamingMovies", "Contract",
	"PaperlessBilling", "PaymentMethod", "Region", "SupportCalls", "MonthlyCharges",
	"TotalCharges", "Churn",
}

// Options controls the size, seed and defect rates of a generated dataset.
type Options struct {
	Rows          int
	Seed          uint64
	MissingRate   float64 // share of TotalCharges left empty
	PaddedRate    float64 // share of TotalCharges written as text with a trailing space
	DuplicateRate float64 // share of rows appended again
}

// DefaultOptions mirrors the reference export.
func DefaultOptions() Options {
	return Options{Rows: 7500, Seed: 42, MissingRate: 0.002, PaddedRate: 0.01, DuplicateRate: 0.005}
}

type choice struct {
	value string
	p     float64
}

func pick(r *rand.Rand, choices []choice) string {
	x := r.Float64()
	acc := 0.0
	for _, c := range choices {
		acc += c.p
		if x < acc {
			return c.value
		}
	}
	return choices[len(choices)-1].value
}

func yesNo(p float64) []choice { return []choice{{"Yes", p}, {"No", 1 - p}} }

func internetAddon(yes, no float64) []choice {
	return []choice{{"Yes", yes}, {"No", no}, {"No internet service", 1 - yes - no}}
}

var (
	genders  = []choice{{"Male", 0.48}, {"Female", 0.48}, {"M", 0.02}, {"F", 0.02}}
	lines    = []choice{{"Yes", 0.45}, {"No", 0.45}, {"No phone service", 0.10}}
	internet = []choice{{"DSL", 0.35}, {"Fiber optic", 0.50}, {"No", 0.15}}
	contract = []choice{{"Month-to-month", 0.55}, {"One year", 0.23}, {"Two year", 0.22}}
	payment  = []choice{
		{"Electronic check", 0.33}, {"Mailed check", 0.23},
		{"Bank transfer (automatic)", 0.22}, {"Credit card (automatic)", 0.22},
	}
	regions = []string{"North", "South", "East", "West", "Central"}
)

// addons are the optional services and their monthly price.
var addons = []struct {
	col     string
	yes, no float64
	price   float64
}{
	{"OnlineSecurity", 0.30, 0.55, 5},
	{"OnlineBackup", 0.35, 0.50, 5},
	{"DeviceProtection", 0.35, 0.50, 5},
	{"TechSupport", 0.30, 0.55, 5},
	{"StreamingTV", 0.40, 0.45, 8},
	{"StreamingMovies", 0.40, 0.45, 8},
}

// Generate builds the dataset. The same options always yield the same rows.
func Generate(opt Options) *dataset.Dataset {
	if opt.Rows <= 0 {
		opt.Rows = DefaultOptions().Rows
	}
	r := rand.New(rand.NewPCG(opt.Seed, opt.Seed^0x9e3779b97f4a7c15))
	d := dataset.New("telecom_customer_data", Columns)

	for i := 1; i <= opt.Rows; i++ {
		rec := dataset.Record{
			"CustomerID":    fmt.Sprintf("CUST%06d", i),
			"Gender":        pick(r, genders),
			"SeniorCitizen": int64(0),
			"Partner":       pick(r, yesNo(0.52)),
			"Dependents":    pick(r, yesNo(0.30)),
			"Tenure":        int64(math.Min(72, r.ExpFloat64()*24)),
			"PhoneService":  pick(r, yesNo(0.90)),
			"MultipleLines": pick(r, lines),
		}
		if r.Float64() < 0.16 {
			rec["SeniorCitizen"] = int64(1)
		}
		svc := pick(r, internet)
		rec["InternetService"] = svc
		monthly := 20.0
		switch svc {
		case "DSL":
			monthly += 25 + r.Float64()*10
		case "Fiber optic":
			monthly += 60 + r.Float64()*30
		}
		for _, a := range addons {
			v := pick(r, internetAddon(a.yes, a.no))
			rec[a.col] = v
			if v == "Yes" {
				monthly += a.price
			}
		}
		rec["Contract"] = pick(r, contract)
		rec["PaperlessBilling"] = pick(r, yesNo(0.59))
		rec["PaymentMethod"] = pick(r, payment)
		rec["Region"] = regions[r.IntN(len(regions))]
		rec["SupportCalls"] = int64(min(15, poisson(r, 2.5)))
		monthly = dataset.Round(monthly, 2)
		rec["MonthlyCharges"] = monthly
		tenure, _ := dataset.AsFloat(rec["Tenure"])
		rec["TotalCharges"] = dataset.Round(monthly*tenure, 2)
		d.Append(rec)
	}

	// missing and padded totals land on disjoint rows
	idx := r.Perm(opt.Rows)
	nMissing := int(float64(opt.Rows) * opt.MissingRate)
	nPadded := int(float64(opt.Rows) * opt.PaddedRate)
	for _, i := range idx[:nMissing] {
		d.Rows[i]["TotalCharges"] = nil
	}
	for _, i := range idx[nMissing : nMissing+nPadded] {
		f, _ := dataset.AsFloat(d.Rows[i]["TotalCharges"])
		d.Rows[i]["TotalCharges"] = decimalText(f) + " "
	}

	for n := int(float64(opt.Rows) * opt.DuplicateRate); n > 0; n-- {
		src := d.Rows[r.IntN(opt.Rows)]
		dup := make(dataset.Record, len(src))
		for k, v := range src {
			dup[k] = v
		}
		d.Append(dup)
	}

	// churn is drawn per row after duplication, so copies may disagree
	for _, rec := range d.Rows {
		rec["Churn"] = "No"
		if r.Float64() < churnProbability(rec) {
			rec["Churn"] = "Yes"
		}
	}

	r.Shuffle(len(d.Rows), func(i, j int) { d.Rows[i], d.Rows[j] = d.Rows[j], d.Rows[i] })
	return d
}

func churnProbability(rec dataset.Record) float64 {
	p := 0.2
	tenure, _ := dataset.AsInt(rec["Tenure"])
	calls, _ := dataset.AsInt(rec["SupportCalls"])
	if rec["Contract"] == "Month-to-month" {
		p += 0.15
	}
	if tenure < 6 {
		p += 0.15
	}
	if rec["PaymentMethod"] == "Electronic check" {
		p += 0.08
	}
	if calls > 5 {
		p += 0.10
	}
	if rec["InternetService"] == "Fiber optic" {
		p += 0.05
	}
	if rec["TechSupport"] == "No" {
		p += 0.05
	}
	if rec["OnlineSecurity"] == "No" {
		p += 0.05
	}
	if rec["Contract"] == "Two year" {
		p -= 0.20
	}
	if tenure > 36 {
		p -= 0.10
	}
	if rec["Partner"] == "Yes" {
		p -= 0.05
	}
	return math.Max(0, math.Min(0.95, p))
}

// poisson draws by inversion, adequate for small lambda.
func poisson(r *rand.Rand, lambda float64) int {
	l := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= r.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

// decimalText renders f with at least one decimal place.
func decimalText(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
