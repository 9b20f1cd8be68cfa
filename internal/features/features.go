// Package features derives bucketed, flag and composite-score columns from a
// cleaned customer dataset.
package features

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

// StageName is used for logging and error attribution.
const StageName = "features"

// Derived column names in the order they are appended.
const (
	ColTenureGroup     = "tenure_group"
	ColAvgMonthlySpend = "avg_monthly_spend"
	ColPaymentIssue    = "payment_issue_flag"
	ColServiceUsage    = "service_usage_score"
	ColContractValue   = "contract_value_score"
	ColRetentionScore  = "retention_score"
	ColValueSegment    = "customer_value_segment"
	ColInternetValue   = "internet_service_value"
	ColTotalServices   = "total_services_count"
	ColChurnRisk       = "churn_risk_flag"
)

// DerivedColumns lists every column Run adds, in order.
var DerivedColumns = []string{
	ColTenureGroup, ColAvgMonthlySpend, ColPaymentIssue, ColServiceUsage, ColContractValue,
	ColRetentionScore, ColValueSegment, ColInternetValue, ColTotalServices, ColChurnRisk,
}

// RequiredColumns must be present in the input schema.
var RequiredColumns = []string{
	"tenure", "monthly_charges", "contract", "payment_method",
	"support_calls", "phone_service", "internet_service",
}

// Bucket is a label and the number of records carrying it.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Report summarizes a feature derivation run.
type Report struct {
	Rows             int            `json:"rows"`
	InitialColumns   int            `json:"initial_columns"`
	FinalColumns     int            `json:"final_columns"`
	Added            []string       `json:"added"`
	Bounds           Bounds         `json:"bounds"`
	DegenerateBounds []string       `json:"degenerate_bounds,omitempty"`
	TenureGroups     []Bucket       `json:"tenure_groups"`
	SpendBuckets     []Bucket       `json:"spend_buckets"`
	Segments         []Bucket       `json:"segments"`
	PaymentIssues    int            `json:"payment_issues"`
	ChurnRisk        int            `json:"churn_risk"`
	ServiceUsageMin  int64          `json:"service_usage_min"`
	ServiceUsageMax  int64          `json:"service_usage_max"`
	RetentionMin     float64        `json:"retention_min"`
	RetentionMax     float64        `json:"retention_max"`
	UnmappedInternet int            `json:"unmapped_internet_service"`
	Skipped          []dataset.Skip `json:"skipped,omitempty"`
}

// row holds the parsed inputs of one record between the two passes.
type row struct {
	tenure   float64
	monthly  float64
	support  float64
	contract string
	score    ScoreInput
	phone    bool
}

// Run appends the derived columns to a copy of in. Missing required columns,
// null core numerics and unknown contract types are fatal.
func Run(in *dataset.Dataset, log *zap.Logger) (*dataset.Dataset, *Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := dataset.Require(StageName, in, RequiredColumns...); err != nil {
		return nil, nil, err
	}

	rep := &Report{Rows: in.Len(), InitialColumns: len(in.Columns)}
	var services []string
	for _, c := range ServiceColumns {
		if in.Has(c) {
			services = append(services, c)
		} else {
			rep.Skipped = append(rep.Skipped, dataset.MissingColumn("service_usage_score", c))
		}
	}

	rows := make([]row, in.Len())
	for i, r := range in.Rows {
		p, err := parseRow(i, r, services)
		if err != nil {
			return nil, nil, err
		}
		rows[i] = p
	}

	b := boundsOf(rows)
	rep.Bounds = b
	rep.DegenerateBounds = b.Degenerate()
	if len(rep.DegenerateBounds) > 0 {
		log.Warn("zero normalization bounds", zap.Strings("bounds", rep.DegenerateBounds))
	}

	out := in.Clone()
	for _, c := range DerivedColumns {
		out.AddColumn(c)
	}

	tenureCounts := map[string]int{}
	spendCounts := map[string]int{}
	segmentCounts := map[string]int{}
	for i, r := range out.Rows {
		p := rows[i]
		retention := RetentionScore(p.score, b)
		usage := int64(p.score.ServiceUsage)
		tg := TenureGroup(p.tenure)
		sb := SpendBucket(p.monthly)
		seg := Segment(retention, p.monthly)
		risk := ChurnRisk(retention, p.tenure, p.contract, p.support)

		r[ColTenureGroup] = tg
		r[ColAvgMonthlySpend] = sb
		r[ColPaymentIssue] = flag(p.score.PaymentIssue)
		r[ColServiceUsage] = usage
		r[ColContractValue] = p.score.ContractScore
		r[ColRetentionScore] = retention
		r[ColValueSegment] = seg
		if v, ok := internetValue(r["internet_service"]); ok {
			r[ColInternetValue] = v
		} else {
			r[ColInternetValue] = nil
			rep.UnmappedInternet++
		}
		r[ColTotalServices] = usage + flag(p.phone)
		r[ColChurnRisk] = flag(risk)

		tenureCounts[tg]++
		spendCounts[sb]++
		segmentCounts[seg]++
		if p.score.PaymentIssue {
			rep.PaymentIssues++
		}
		if risk {
			rep.ChurnRisk++
		}
		if i == 0 || usage < rep.ServiceUsageMin {
			rep.ServiceUsageMin = usage
		}
		if i == 0 || usage > rep.ServiceUsageMax {
			rep.ServiceUsageMax = usage
		}
		if i == 0 || retention < rep.RetentionMin {
			rep.RetentionMin = retention
		}
		if i == 0 || retention > rep.RetentionMax {
			rep.RetentionMax = retention
		}
	}

	rep.TenureGroups = buckets(TenureGroups, tenureCounts)
	rep.SpendBuckets = buckets(SpendBuckets, spendCounts)
	rep.Segments = buckets(Segments, segmentCounts)
	rep.FinalColumns = len(out.Columns)
	rep.Added = append([]string(nil), DerivedColumns...)
	if rep.UnmappedInternet > 0 {
		log.Warn("unmapped internet_service values", zap.Int("rows", rep.UnmappedInternet))
	}
	log.Info("features derived",
		zap.Int("rows", rep.Rows),
		zap.Int("added", len(rep.Added)),
		zap.Int("payment_issues", rep.PaymentIssues),
		zap.Int("churn_risk", rep.ChurnRisk),
		zap.Float64("retention_min", rep.RetentionMin),
		zap.Float64("retention_max", rep.RetentionMax))
	return out, rep, nil
}

func parseRow(i int, r dataset.Record, services []string) (row, error) {
	var p row
	var ok bool
	if p.tenure, ok = dataset.AsFloat(r["tenure"]); !ok {
		return p, nullValue(i, "tenure", r["tenure"])
	}
	if p.monthly, ok = dataset.AsFloat(r["monthly_charges"]); !ok {
		return p, nullValue(i, "monthly_charges", r["monthly_charges"])
	}
	if p.support, ok = dataset.AsFloat(r["support_calls"]); !ok {
		return p, nullValue(i, "support_calls", r["support_calls"])
	}
	p.contract, _ = dataset.AsString(r["contract"])
	cs, ok := ContractScore(p.contract)
	if !ok {
		return p, &dataset.ValidationError{
			Stage: StageName, Column: "contract", Row: i,
			Reason: fmt.Sprintf("unknown contract type %q", dataset.Format(r["contract"])),
		}
	}
	method, _ := dataset.AsString(r["payment_method"])
	usage := 0
	for _, c := range services {
		if isYes(r[c]) {
			usage++
		}
	}
	p.phone = isYes(r["phone_service"])
	p.score = ScoreInput{
		Tenure:        p.tenure,
		ContractScore: cs,
		ServiceUsage:  float64(usage),
		PaymentIssue:  method == ElectronicCheck,
		SupportCalls:  p.support,
	}
	return p, nil
}

func nullValue(i int, col string, v any) error {
	reason := "value is missing"
	if !dataset.IsMissing(v) {
		reason = fmt.Sprintf("value %q is not numeric", dataset.Format(v))
	}
	return &dataset.ValidationError{Stage: StageName, Column: col, Row: i, Reason: reason}
}

func internetValue(v any) (int64, bool) {
	s, ok := dataset.AsString(v)
	if !ok {
		return 0, false
	}
	return InternetValue(s)
}

func boundsOf(rows []row) Bounds {
	var b Bounds
	for i, p := range rows {
		if i == 0 || p.tenure > b.MaxTenure {
			b.MaxTenure = p.tenure
		}
		if i == 0 || p.score.ServiceUsage > b.MaxService {
			b.MaxService = p.score.ServiceUsage
		}
		if i == 0 || p.support > b.MaxSupport {
			b.MaxSupport = p.support
		}
	}
	return b
}

func buckets(labels []string, counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(labels))
	for _, l := range labels {
		out = append(out, Bucket{Label: l, Count: counts[l]})
	}
	return out
}
