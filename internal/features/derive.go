package features

import "github.com/KaramelBytes/retention-cli/internal/dataset"

// Tenure group labels in ascending order.
var TenureGroups = []string{"0-12 months", "12-24 months", "24-36 months", "36-48 months", "48+ months"}

// Spend bucket labels in ascending order.
var SpendBuckets = []string{"Low (<$30)", "Medium ($30-$70)", "High ($70-$100)", "Premium ($100+)"}

// Segment labels.
const (
	SegmentHighHigh = "High Value - High Retention"
	SegmentLowHigh  = "Low Value - High Retention"
	SegmentHighRisk = "High Value - At Risk"
	SegmentLowRisk  = "Low Value - At Risk"
)

// Segments lists segment labels in report order.
var Segments = []string{SegmentHighHigh, SegmentLowHigh, SegmentHighRisk, SegmentLowRisk}

// ServiceColumns are the non-phone services counted by service_usage_score.
var ServiceColumns = []string{
	"multiple_lines", "online_security", "online_backup", "device_protection",
	"tech_support", "streaming_tv", "streaming_movies",
}

// ElectronicCheck is the payment method treated as a payment risk.
const ElectronicCheck = "Electronic check"

var contractScores = map[string]int64{"Month-to-month": 1, "One year": 2, "Two year": 3}

var internetValues = map[string]int64{"No": 0, "DSL": 1, "Fiber optic": 2}

// Fixed thresholds.
const (
	HighRetention     = 70.0
	HighValueCharges  = 70.0
	LowRetention      = 40.0
	NewCustomerTenure = 6
	MaxSupportCalls   = 8
)

// TenureGroup buckets tenure in months; upper edges are inclusive.
func TenureGroup(tenure float64) string {
	switch {
	case tenure <= 12:
		return TenureGroups[0]
	case tenure <= 24:
		return TenureGroups[1]
	case tenure <= 36:
		return TenureGroups[2]
	case tenure <= 48:
		return TenureGroups[3]
	default:
		return TenureGroups[4]
	}
}

// SpendBucket buckets monthly charges; lower edges are inclusive.
func SpendBucket(monthly float64) string {
	switch {
	case monthly < 30:
		return SpendBuckets[0]
	case monthly < 70:
		return SpendBuckets[1]
	case monthly < 100:
		return SpendBuckets[2]
	default:
		return SpendBuckets[3]
	}
}

// ContractScore maps a contract type to 1..3.
func ContractScore(contract string) (int64, bool) {
	v, ok := contractScores[contract]
	return v, ok
}

// InternetValue maps an internet service type to 0..2.
func InternetValue(service string) (int64, bool) {
	v, ok := internetValues[service]
	return v, ok
}

// Segment crosses retention score with monthly charges.
func Segment(retention, monthly float64) string {
	high := retention >= HighRetention
	value := monthly >= HighValueCharges
	switch {
	case high && value:
		return SegmentHighHigh
	case high:
		return SegmentLowHigh
	case value:
		return SegmentHighRisk
	default:
		return SegmentLowRisk
	}
}

// ChurnRisk is true when any of the three risk rules holds.
func ChurnRisk(retention, tenure float64, contract string, supportCalls float64) bool {
	return retention < LowRetention ||
		(tenure < NewCustomerTenure && contract == "Month-to-month") ||
		supportCalls > MaxSupportCalls
}

func isYes(v any) bool {
	s, ok := dataset.AsString(v)
	return ok && s == "Yes"
}

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
