package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func finalDataset() *dataset.Dataset {
	d := dataset.New("final_customer_data", []string{
		"customer_id", "tenure", "contract", "monthly_charges", "total_charges",
		"churn", "retention_score", "churn_risk_flag", "customer_value_segment",
	})
	d.Append(dataset.Record{"customer_id": "A", "tenure": int64(10), "contract": "One year", "monthly_charges": 50.0, "total_charges": 500.0, "churn": "No", "retention_score": 80.0, "churn_risk_flag": int64(0), "customer_value_segment": "Low Value - High Retention"})
	d.Append(dataset.Record{"customer_id": "B", "tenure": int64(20), "contract": "Two year", "monthly_charges": 80.0, "total_charges": 1600.0, "churn": "No", "retention_score": 90.0, "churn_risk_flag": int64(0), "customer_value_segment": "High Value - High Retention"})
	d.Append(dataset.Record{"customer_id": "C", "tenure": int64(5), "contract": "Month-to-month", "monthly_charges": 20.0, "total_charges": 100.0, "churn": "No", "retention_score": 60.0, "churn_risk_flag": int64(0), "customer_value_segment": "Low Value - At Risk"})
	d.Append(dataset.Record{"customer_id": "D", "tenure": int64(30), "contract": "One year", "monthly_charges": 60.0, "total_charges": 1800.0, "churn": "No", "retention_score": 75.0, "churn_risk_flag": int64(0), "customer_value_segment": "Low Value - High Retention"})
	return d
}

func testOptions() Options {
	opt := DefaultOptions()
	opt.Now = fixedNow
	return opt
}

func TestRunCleanDatasetScoresPerfect(t *testing.T) {
	rep, err := Run(finalDataset(), testOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, 100.0, rep.Quality.Score)
	assert.Equal(t, "Excellent", rep.Quality.Rating)
	require.NotNil(t, rep.Quality.Uniqueness)
	assert.Equal(t, 100.0, *rep.Quality.Uniqueness)
	assert.Equal(t, 0, rep.Missing.Total)
	assert.Equal(t, 0, rep.Duplicates.Rows)
	require.NotNil(t, rep.Duplicates.Identity)
	assert.Equal(t, 0, *rep.Duplicates.Identity)
	assert.Equal(t, []string{RecReady}, rep.Recommendations)
	assert.True(t, rep.Readiness.Ready)
	assert.Empty(t, rep.Skipped)
	assert.Equal(t, fixedNow(), rep.GeneratedAt)

	require.NotNil(t, rep.Anomalies.Consistency)
	assert.Equal(t, 4, rep.Anomalies.Consistency.Checked)
	assert.Equal(t, 0, rep.Anomalies.Consistency.Inconsistent)

	in := rep.Insights
	require.NotNil(t, in.ChurnRate)
	assert.Equal(t, 0.0, *in.ChurnRate)
	require.NotNil(t, in.AvgTenure)
	assert.InDelta(t, 16.25, *in.AvgTenure, 1e-9)
	assert.Equal(t, "210.00", in.TotalMonthlyRevenue)
	require.Len(t, in.ContractDistribution, 3)
	assert.Equal(t, Share{Value: "One year", Count: 2, Percent: 50}, in.ContractDistribution[0])
	require.NotNil(t, in.HighRiskCustomers)
	assert.Equal(t, 0, *in.HighRiskCustomers)
	require.NotNil(t, in.AvgRetentionScore)
	assert.InDelta(t, 76.25, *in.AvgRetentionScore, 1e-9)
	assert.Len(t, in.SegmentDistribution, 3)

	assert.Equal(t, map[string]int{"int64": 2, "float64": 3, "string": 4}, rep.DTypes)
	assert.NotEmpty(t, rep.Numeric)
	assert.NotEmpty(t, rep.Categorical)

	b, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"quality":{"score":100`)
}

func TestRunEmptyIsFatal(t *testing.T) {
	_, err := Run(dataset.New("x", []string{"a"}), testOptions(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrValidation))
	_, err = Run(nil, testOptions(), nil)
	assert.True(t, errors.Is(err, dataset.ErrEmptyDataset))
}

func TestQualityScoreComponents(t *testing.T) {
	d := dataset.New("q", []string{"customer_id", "v"})
	d.Append(dataset.Record{"customer_id": "A", "v": int64(1)})
	d.Append(dataset.Record{"customer_id": "A", "v": int64(1)})
	d.Append(dataset.Record{"customer_id": "B", "v": nil})

	q := ScoreQuality(d, "customer_id")
	assert.InDelta(t, 83.3333, q.Completeness, 1e-3)
	assert.InDelta(t, 66.6667, *q.Uniqueness, 1e-3)
	assert.InDelta(t, 66.6667, q.Consistency, 1e-3)
	assert.Equal(t, 72.22, q.Score)
	assert.Equal(t, "Fair", q.Rating)

	q = ScoreQuality(d, "id")
	assert.Nil(t, q.Uniqueness)
	assert.Equal(t, 75.0, q.Score)
}

func TestRatingBands(t *testing.T) {
	assert.Equal(t, "Excellent", Rating(95))
	assert.Equal(t, "Good", Rating(94.99))
	assert.Equal(t, "Good", Rating(85))
	assert.Equal(t, "Fair", Rating(70))
	assert.Equal(t, "Needs Improvement", Rating(69.99))
}

func TestConsistencyGuardsZeroDenominator(t *testing.T) {
	d := dataset.New("c", []string{"tenure", "monthly_charges", "total_charges"})
	d.Append(dataset.Record{"tenure": int64(0), "monthly_charges": 0.0, "total_charges": 0.0})
	d.Append(dataset.Record{"tenure": int64(10), "monthly_charges": 10.0, "total_charges": 150.0})
	d.Append(dataset.Record{"tenure": int64(10), "monthly_charges": 10.0, "total_charges": 105.0})
	d.Append(dataset.Record{"tenure": nil, "monthly_charges": 10.0, "total_charges": 105.0})

	res := CheckConsistency(d, DefaultConsistencyTolerance)
	require.True(t, res.OK())
	c := res.Value
	assert.Equal(t, 1, c.ZeroDenominator)
	assert.Equal(t, 2, c.Checked)
	assert.Equal(t, 1, c.Inconsistent)
	assert.Equal(t, 1, c.Incomplete)

	res = CheckConsistency(dataset.New("none", []string{"tenure"}), 0.1)
	require.False(t, res.OK())
	assert.Equal(t, "consistency_check", res.Skipped.Computation)
}

func TestRunDegradesWithoutOptionalColumns(t *testing.T) {
	d := dataset.New("partial", []string{"customer_id", "tenure"})
	d.Append(dataset.Record{"customer_id": "A", "tenure": int64(3)})
	d.Append(dataset.Record{"customer_id": "B", "tenure": int64(4)})

	rep, err := Run(d, testOptions(), nil)
	require.NoError(t, err)
	assert.Nil(t, rep.Insights.ChurnRate)
	assert.Nil(t, rep.Anomalies.Consistency)
	require.NotNil(t, rep.Insights.AvgTenure)

	comps := map[string]bool{}
	for _, s := range rep.Skipped {
		comps[s.Computation] = true
	}
	for _, want := range []string{"churn_rate", "monthly_revenue", "contract_distribution", "high_risk_customers", "avg_retention_score", "consistency_check", "outlier_detection"} {
		assert.True(t, comps[want], "expected %s to be skipped", want)
	}
}

func TestRecommendationsFollowThresholds(t *testing.T) {
	d := finalDataset()
	for _, r := range d.Rows[:2] {
		r["churn"] = "Yes"
		r["churn_risk_flag"] = int64(1)
	}
	d.Rows[3]["contract"] = nil

	rep, err := Run(d, testOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 50.0, *rep.Insights.ChurnRate)
	assert.Equal(t, []string{RecMissing, RecChurn, RecHighRisk}, rep.Recommendations)
	assert.False(t, rep.Readiness.Ready)
	assert.Less(t, rep.Quality.Score, 100.0)
}

func TestDecimalSum(t *testing.T) {
	s, err := decimalSum([]float64{0.1, 0.2})
	require.NoError(t, err)
	assert.Equal(t, "0.30", s)

	s, err = decimalSum([]float64{19.995})
	require.NoError(t, err)
	assert.Equal(t, "20.00", s)

	s, err = decimalSum(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.00", s)
}

func TestReadinessFlagsBadNames(t *testing.T) {
	d := dataset.New("r", []string{"Total Charges", "customer_id"})
	d.Append(dataset.Record{"Total Charges": 1.0, "customer_id": " A"})
	rep, err := Run(d, testOptions(), nil)
	require.NoError(t, err)
	require.False(t, rep.Readiness.Ready)
	assert.False(t, rep.Readiness.Checks[0].Passed)
	assert.Contains(t, rep.Readiness.Checks[0].Detail, "Total Charges")
}

func TestRunHighCardinalityTextHasTopValues(t *testing.T) {
	d := dataset.New("t", []string{"customer_id", "email"})
	for i := 0; i < 60; i++ {
		email := "dup@example.com"
		if i >= 4 {
			email = fmt.Sprintf("e%02d@example.com", i)
		}
		d.Append(dataset.Record{"customer_id": fmt.Sprintf("C%02d", i), "email": email})
	}
	d.Append(dataset.Record{"customer_id": "C60", "email": nil})

	rep, err := Run(d, testOptions(), nil)
	require.NoError(t, err)

	var email *CategoricalDistribution
	for i := range rep.Categorical {
		if rep.Categorical[i].Column == "email" {
			email = &rep.Categorical[i]
		}
	}
	require.NotNil(t, email, "text column missing from categorical distributions")
	require.Len(t, email.Top, 3)
	assert.Equal(t, "dup@example.com", email.Top[0].Value)
	assert.Equal(t, 4, email.Top[0].Count)
	assert.InDelta(t, 4.0/61*100, email.Top[0].Percent, 1e-9)
	assert.Equal(t, "e04@example.com", email.Top[1].Value)
	assert.Equal(t, "e05@example.com", email.Top[2].Value)
}
