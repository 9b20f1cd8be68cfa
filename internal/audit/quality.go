package audit

import "github.com/KaramelBytes/retention-cli/internal/dataset"

// Rating bands, evaluated top down.
var ratingBands = []struct {
	min   float64
	label string
}{
	{95, "Excellent"},
	{85, "Good"},
	{70, "Fair"},
}

// Quality is the dataset-level quality score and its components, all in
// percent. Uniqueness is nil when no identity column exists.
type Quality struct {
	Score        float64  `json:"score"`
	Rating       string   `json:"rating"`
	Completeness float64  `json:"completeness"`
	Uniqueness   *float64 `json:"uniqueness,omitempty"`
	Consistency  float64  `json:"consistency"`
}

// Rating maps a score to its qualitative band.
func Rating(score float64) string {
	for _, b := range ratingBands {
		if score >= b.min {
			return b.label
		}
	}
	return "Needs Improvement"
}

// ScoreQuality averages completeness, uniqueness (when identity is in the
// schema) and consistency. d must be non-empty.
func ScoreQuality(d *dataset.Dataset, identity string) Quality {
	rows := float64(d.Len())
	cells := rows * float64(len(d.Columns))
	var q Quality
	if cells > 0 {
		q.Completeness = (1 - float64(d.TotalMissing())/cells) * 100
	}
	if rows > 0 {
		q.Consistency = (rows - float64(d.DuplicateRows())) / rows * 100
	}
	sum, n := q.Completeness+q.Consistency, 2.0
	if identity != "" && d.Has(identity) && rows > 0 {
		u := float64(d.Distinct(identity)) / rows * 100
		q.Uniqueness = &u
		sum += u
		n++
	}
	q.Score = dataset.Round(sum/n, 2)
	q.Rating = Rating(q.Score)
	return q
}
