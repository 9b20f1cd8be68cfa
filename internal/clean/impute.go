package clean

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// Canonical column names the cleaner knows about.
const (
	ColCustomerID      = "customer_id"
	ColGender          = "gender"
	ColSeniorCitizen   = "senior_citizen"
	ColTenure          = "tenure"
	ColMonthlyCharges  = "monthly_charges"
	ColTotalCharges    = "total_charges"
	ColSupportCalls    = "support_calls"
	ColPartner         = "partner"
	ColDependents      = "dependents"
	ColPhoneService    = "phone_service"
	ColPaperless       = "paperless_billing"
	ColChurn           = "churn"
	ColContract        = "contract"
	ColInternetService = "internet_service"
)

// YesNoColumns hold Yes/No answers that are trimmed and title-cased.
var YesNoColumns = []string{ColPartner, ColDependents, ColPhoneService, ColPaperless, ColChurn}

var genderCodes = map[string]string{"M": "Male", "F": "Female"}

var title = cases.Title(language.Und)

// CoercionReport counts per-column type repairs.
type CoercionReport struct {
	Column   string `json:"column"`
	Repaired int    `json:"repaired"` // strings parsed into numbers
	Failed   int    `json:"failed"`   // non-null values that became null
}

// ImputeReport describes total_charges imputation.
type ImputeReport struct {
	MissingBefore int `json:"missing_before"`
	Imputed       int `json:"imputed"`
	// Unrecoverable rows lack tenure or monthly_charges and stay null.
	Unrecoverable int `json:"unrecoverable"`
}

// StandardizeCategoricals maps gender codes to words and normalizes Yes/No
// columns in place. Absent columns are returned as skips.
func StandardizeCategoricals(d *dataset.Dataset) []dataset.Skip {
	var skips []dataset.Skip
	if d.Has(ColGender) {
		for _, r := range d.Rows {
			s, ok := dataset.AsString(r[ColGender])
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if full, ok := genderCodes[strings.ToUpper(s)]; ok {
				s = full
			}
			r[ColGender] = s
		}
	} else {
		skips = append(skips, dataset.MissingColumn("gender_standardization", ColGender))
	}
	for _, col := range YesNoColumns {
		if !d.Has(col) {
			skips = append(skips, dataset.MissingColumn("yes_no_standardization", col))
			continue
		}
		for _, r := range d.Rows {
			if s, ok := dataset.AsString(r[col]); ok {
				r[col] = title.String(strings.TrimSpace(s))
			}
		}
	}
	return skips
}

// coerceFloat turns every value of col into float64 or nil.
func coerceFloat(d *dataset.Dataset, col string) CoercionReport {
	rep := CoercionReport{Column: col}
	for _, r := range d.Rows {
		v := r[col]
		if dataset.IsMissing(v) {
			r[col] = nil
			continue
		}
		f, ok := dataset.ParseNumber(v)
		if !ok {
			r[col] = nil
			rep.Failed++
			continue
		}
		if _, isStr := v.(string); isStr {
			rep.Repaired++
		}
		r[col] = f
	}
	return rep
}

// coerceInt turns every value of col into int64 or nil. Fractions are truncated.
func coerceInt(d *dataset.Dataset, col string) CoercionReport {
	rep := CoercionReport{Column: col}
	for _, r := range d.Rows {
		v := r[col]
		if dataset.IsMissing(v) {
			r[col] = nil
			continue
		}
		f, ok := dataset.ParseNumber(v)
		if !ok {
			r[col] = nil
			rep.Failed++
			continue
		}
		if _, isStr := v.(string); isStr {
			rep.Repaired++
		}
		r[col] = int64(math.Trunc(f))
	}
	return rep
}

// coerceFlag maps senior_citizen style values to 0/1.
func coerceFlag(d *dataset.Dataset, col string) CoercionReport {
	rep := CoercionReport{Column: col}
	for _, r := range d.Rows {
		v := r[col]
		if dataset.IsMissing(v) {
			r[col] = nil
			continue
		}
		switch t := v.(type) {
		case bool:
			r[col] = boolInt(t)
			rep.Repaired++
			continue
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "yes", "true", "y":
				r[col] = int64(1)
				rep.Repaired++
				continue
			case "no", "false", "n":
				r[col] = int64(0)
				rep.Repaired++
				continue
			}
		}
		f, ok := dataset.ParseNumber(v)
		if !ok || (f != 0 && f != 1) {
			r[col] = nil
			rep.Failed++
			continue
		}
		if _, isStr := v.(string); isStr {
			rep.Repaired++
		}
		r[col] = int64(f)
	}
	return rep
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// CoerceTypes repairs the numeric columns. Missing columns are skipped.
func CoerceTypes(d *dataset.Dataset) ([]CoercionReport, []dataset.Skip) {
	var (
		reps  []CoercionReport
		skips []dataset.Skip
	)
	type step struct {
		col string
		fn  func(*dataset.Dataset, string) CoercionReport
	}
	steps := []step{
		{ColTotalCharges, coerceFloat},
		{ColMonthlyCharges, coerceFloat},
		{ColTenure, coerceInt},
		{ColSupportCalls, coerceInt},
		{ColSeniorCitizen, coerceFlag},
	}
	for _, s := range steps {
		if !d.Has(s.col) {
			skips = append(skips, dataset.MissingColumn("type_coercion", s.col))
			continue
		}
		reps = append(reps, s.fn(d, s.col))
	}
	return reps, skips
}

// ImputeTotalCharges fills null total_charges with monthly_charges * tenure.
// Expects CoerceTypes to have run.
func ImputeTotalCharges(d *dataset.Dataset) dataset.Result[ImputeReport] {
	for _, c := range []string{ColTotalCharges, ColMonthlyCharges, ColTenure} {
		if !d.Has(c) {
			return dataset.Skipped[ImputeReport](dataset.MissingColumn("total_charges_imputation", c))
		}
	}
	var rep ImputeReport
	for _, r := range d.Rows {
		if !dataset.IsMissing(r[ColTotalCharges]) {
			continue
		}
		rep.MissingBefore++
		m, okM := dataset.AsFloat(r[ColMonthlyCharges])
		t, okT := dataset.AsFloat(r[ColTenure])
		if !okM || !okT {
			rep.Unrecoverable++
			continue
		}
		r[ColTotalCharges] = m * t
		rep.Imputed++
	}
	return dataset.Computed(rep)
}
