package clean

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"CustomerID":       "customer_id",
		"MonthlyCharges":   "monthly_charges",
		"SeniorCitizen":    "senior_citizen",
		"tenure":           "tenure",
		"PaperlessBilling": "paperless_billing",
		"Total Charges":    "total_charges",
		"already_snake":    "already_snake",
		"HTTPStatus2Code":  "http_status2_code",
	}
	for in, want := range cases {
		got := SnakeCase(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, SnakeCase(got), "not idempotent for %q", in)
	}
}

func TestNormalizeNames(t *testing.T) {
	assert.Empty(t, NormalizeNames(nil))
	assert.Equal(t, []string{"total_charges", "total_charges_2"}, NormalizeNames([]string{"TotalCharges", "total_charges"}))
	// a suffixed name already present is never reused
	assert.Equal(t, []string{"total_charges_2", "total_charges", "total_charges_3"},
		NormalizeNames([]string{"total_charges_2", "TotalCharges", "total_charges"}))
	assert.Equal(t, []string{"a", "a_2", "a_2_2"}, NormalizeNames([]string{"A", "a", "a_2"}))
}

func TestNormalizeSchemaKeepsCollidingValues(t *testing.T) {
	d := dataset.New("raw", []string{"total_charges_2", "TotalCharges", "total_charges"})
	d.Append(dataset.Record{"total_charges_2": "A", "TotalCharges": "B", "total_charges": "C"})

	out := NormalizeSchema(d)
	require.Len(t, out.Columns, 3)
	assert.Equal(t, dataset.Record{"total_charges_2": "A", "total_charges": "B", "total_charges_3": "C"}, out.Rows[0])
}

func rawDataset() *dataset.Dataset {
	d := dataset.New("raw", []string{
		"CustomerID", "Gender", "SeniorCitizen", "Partner", "Tenure", "Contract",
		"MonthlyCharges", "TotalCharges", "SupportCalls", "Churn",
	})
	d.Append(dataset.Record{"CustomerID": "C1", "Gender": "M", "SeniorCitizen": int64(0), "Partner": " yes", "Tenure": int64(10), "Contract": "One year", "MonthlyCharges": 15.0, "TotalCharges": " 150.0 ", "SupportCalls": int64(1), "Churn": "no"})
	d.Append(dataset.Record{"CustomerID": "C2", "Gender": "F", "SeniorCitizen": int64(1), "Partner": "No", "Tenure": int64(4), "Contract": "Month-to-month", "MonthlyCharges": 50.0, "TotalCharges": nil, "SupportCalls": int64(3), "Churn": "Yes"})
	d.Append(dataset.Record{"CustomerID": "C3", "Gender": "Female", "SeniorCitizen": "No", "Partner": "No", "Tenure": int64(2), "Contract": "Two year", "MonthlyCharges": 30.0, "TotalCharges": "abc", "SupportCalls": "2", "Churn": "No"})
	// exact duplicate of C2
	d.Append(dataset.Record{"CustomerID": "C2", "Gender": "F", "SeniorCitizen": int64(1), "Partner": "No", "Tenure": int64(4), "Contract": "Month-to-month", "MonthlyCharges": 50.0, "TotalCharges": nil, "SupportCalls": int64(3), "Churn": "Yes"})
	// identity duplicate of C1 with different content
	d.Append(dataset.Record{"CustomerID": "C1", "Gender": "Male", "SeniorCitizen": int64(0), "Partner": "Yes", "Tenure": int64(11), "Contract": "One year", "MonthlyCharges": 15.0, "TotalCharges": 165.0, "SupportCalls": int64(1), "Churn": "No"})
	return d
}

func TestRunRepairsAndDeduplicates(t *testing.T) {
	in := rawDataset()
	out, rep, err := Run(in, DefaultOptions(), nil)
	require.NoError(t, err)

	// input untouched
	assert.Equal(t, "M", in.Rows[0]["Gender"])
	assert.Equal(t, " 150.0 ", in.Rows[0]["TotalCharges"])

	require.Equal(t, 3, out.Len())
	assert.Equal(t, 5, rep.InitialRows)
	assert.Equal(t, 3, rep.FinalRows)
	assert.Equal(t, 1, rep.Duplicates.ExactRemoved)
	assert.Equal(t, 1, rep.Duplicates.IdentityRemoved)
	assert.Equal(t, "customer_id", rep.RenamedCols["CustomerID"])

	byID := map[string]dataset.Record{}
	for _, r := range out.Rows {
		byID[r["customer_id"].(string)] = r
	}
	// first occurrence of C1 is kept
	assert.Equal(t, int64(10), byID["C1"]["tenure"])
	assert.Equal(t, 150.0, byID["C1"]["total_charges"])
	assert.Equal(t, "Male", byID["C1"]["gender"])
	assert.Equal(t, "Yes", byID["C1"]["partner"])
	assert.Equal(t, "No", byID["C1"]["churn"])

	assert.InDelta(t, 200.0, byID["C2"]["total_charges"], 1e-9)
	assert.InDelta(t, 60.0, byID["C3"]["total_charges"], 1e-9)
	assert.Equal(t, int64(0), byID["C3"]["senior_citizen"])
	assert.Equal(t, int64(2), byID["C3"]["support_calls"])

	for _, r := range out.Rows {
		assert.False(t, dataset.IsMissing(r["total_charges"]))
	}
	require.NotNil(t, rep.Imputation)
	assert.Equal(t, 3, rep.Imputation.Imputed) // imputation runs before dedup
	assert.Equal(t, 0, out.DuplicateRows())
	assert.Equal(t, 0, out.DuplicateKeys("customer_id"))
}

func TestRunEmptyIsValidationError(t *testing.T) {
	_, _, err := Run(dataset.New("empty", []string{"a"}), DefaultOptions(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrValidation))
}

func TestRunDegradesWithoutOptionalColumns(t *testing.T) {
	d := dataset.New("partial", []string{"CustomerID", "Tenure"})
	d.Append(dataset.Record{"CustomerID": "A", "Tenure": int64(3)})
	d.Append(dataset.Record{"CustomerID": "B", "Tenure": int64(5)})

	out, rep, err := Run(d, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Nil(t, rep.Imputation)

	comps := map[string]bool{}
	for _, s := range rep.Skipped {
		comps[s.Computation] = true
	}
	assert.True(t, comps["total_charges_imputation"])
	assert.True(t, comps["gender_standardization"])
	assert.True(t, comps["outlier_detection"])
}

func TestDeduplicateKeepsFirst(t *testing.T) {
	d := dataset.New("dups", []string{"customer_id", "v"})
	d.Append(dataset.Record{"customer_id": "X", "v": int64(1)})
	d.Append(dataset.Record{"customer_id": "X", "v": 1.0})
	out, rep := Deduplicate(d, "customer_id")
	require.Equal(t, 1, out.Len())
	assert.Equal(t, int64(1), out.Rows[0]["v"])
	assert.Equal(t, 1, rep.ExactRemoved)
	assert.Equal(t, 0, rep.IdentityRemoved)

	out, rep = Deduplicate(d, "")
	assert.Equal(t, 1, out.Len())
	assert.Empty(t, rep.IdentityColumn)
}

func TestDetectOutliersUsesTripleIQR(t *testing.T) {
	d := dataset.New("o", []string{"tenure"})
	for _, v := range []float64{10, 11, 12, 13, 14, 15, 16, 17, 28, 1000} {
		d.Append(dataset.Record{"tenure": v})
	}
	res, skips := DetectOutliers(d, []string{"tenure", "monthly_charges"}, 3)
	require.Len(t, res, 1)
	require.Len(t, skips, 1)
	assert.Equal(t, 1, res[0].Count)
	assert.Equal(t, 10, res[0].Values)
}
