package clean

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
)

var (
	reWordRun    = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	reLowerUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	reSeparators = regexp.MustCompile(`[\s\-]+`)
	reUnderscore = regexp.MustCompile(`_+`)
)

// SnakeCase converts a column name to lowercase underscore form:
// "CustomerID" -> "customer_id", "MonthlyCharges" -> "monthly_charges".
// Applying it to its own output is a no-op.
func SnakeCase(name string) string {
	s := strings.TrimSpace(name)
	s = reWordRun.ReplaceAllString(s, "${1}_${2}")
	s = reLowerUpper.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = reSeparators.ReplaceAllString(s, "_")
	return reUnderscore.ReplaceAllString(s, "_")
}

// NormalizeNames maps every name through SnakeCase. Names that collide after
// normalization get the smallest numeric suffix not already emitted, so the
// result never repeats a name.
func NormalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		base := SnakeCase(n)
		s := base
		for k := 2; taken[s]; k++ {
			s = fmt.Sprintf("%s_%d", base, k)
		}
		taken[s] = true
		out = append(out, s)
	}
	return out
}

// NormalizeSchema returns a copy of d with canonical column names. Values are
// untouched.
func NormalizeSchema(d *dataset.Dataset) *dataset.Dataset {
	names := NormalizeNames(d.Columns)
	out := dataset.New(d.Name, names)
	out.Rows = make([]dataset.Record, len(d.Rows))
	for i, r := range d.Rows {
		nr := make(dataset.Record, len(names))
		for j, old := range d.Columns {
			nr[names[j]] = r[old]
		}
		out.Rows[i] = nr
	}
	return out
}
