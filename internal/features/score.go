package features

import "github.com/KaramelBytes/retention-cli/internal/dataset"

// Component weights of the retention score.
const (
	WeightTenure   = 0.30
	WeightContract = 0.25
	WeightService  = 0.20
	WeightPayment  = 0.15
	WeightSupport  = 0.10
)

// Bounds are the dataset-wide maxima that normalize the retention score.
// They are computed once per dataset and passed to every record.
type Bounds struct {
	MaxTenure  float64 `json:"max_tenure"`
	MaxService float64 `json:"max_service_usage"`
	MaxSupport float64 `json:"max_support_calls"`
}

// Degenerate lists the bounds that are zero.
func (b Bounds) Degenerate() []string {
	var out []string
	if b.MaxTenure <= 0 {
		out = append(out, "max_tenure")
	}
	if b.MaxService <= 0 {
		out = append(out, "max_service_usage")
	}
	if b.MaxSupport <= 0 {
		out = append(out, "max_support_calls")
	}
	return out
}

// ScoreInput is the per-record data the retention score reads.
type ScoreInput struct {
	Tenure        float64
	ContractScore int64
	ServiceUsage  float64
	PaymentIssue  bool
	SupportCalls  float64
}

// ratio returns v/max clamped to [0,1]; a zero max yields 0.
func ratio(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	r := v / max
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// RetentionScore is the weighted composite in [0,100], rounded to 2 places.
func RetentionScore(in ScoreInput, b Bounds) float64 {
	tenure := ratio(in.Tenure, b.MaxTenure) * 100
	contract := float64(in.ContractScore-1) / 2 * 100
	service := ratio(in.ServiceUsage, b.MaxService) * 100
	payment := 100.0
	if in.PaymentIssue {
		payment = 0
	}
	support := (1 - ratio(in.SupportCalls, b.MaxSupport)) * 100

	score := tenure*WeightTenure + contract*WeightContract + service*WeightService +
		payment*WeightPayment + support*WeightSupport
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return dataset.Round(score, 2)
}
