package clean

import "github.com/KaramelBytes/retention-cli/internal/dataset"

// DedupReport counts removals by pass.
type DedupReport struct {
	ExactRemoved    int    `json:"exact_removed"`
	IdentityRemoved int    `json:"identity_removed"`
	IdentityColumn  string `json:"identity_column,omitempty"`
}

// Deduplicate removes exact duplicate rows, then rows repeating an earlier
// identity value. The first occurrence always wins. An empty identity column
// or one absent from the schema disables the second pass.
func Deduplicate(d *dataset.Dataset, identity string) (*dataset.Dataset, DedupReport) {
	rep := DedupReport{}
	out := dataset.New(d.Name, d.Columns)

	seen := make(map[string]struct{}, len(d.Rows))
	for _, r := range d.Rows {
		k := d.RowKey(r)
		if _, ok := seen[k]; ok {
			rep.ExactRemoved++
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, r)
	}

	if identity == "" || !d.Has(identity) {
		return out, rep
	}
	rep.IdentityColumn = identity
	ids := make(map[string]struct{}, len(out.Rows))
	kept := out.Rows[:0]
	for _, r := range out.Rows {
		k := dataset.Canonical(r[identity])
		if _, ok := ids[k]; ok {
			rep.IdentityRemoved++
			continue
		}
		ids[k] = struct{}{}
		kept = append(kept, r)
	}
	out.Rows = kept
	return out, rep
}
