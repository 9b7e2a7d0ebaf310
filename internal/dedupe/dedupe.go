// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe merges the identifier records retrieved from multiple
// databases into a single duplicate-free list. Exact duplicates collapse
// silently; a partial record sharing an identifier with a more complete
// record is dropped in its favor; an identifier claimed by more than two
// records aborts the merge.
package dedupe

import (
	"fmt"
	"sort"

	"github.com/pdiddy/entrez-harvest/pkg/types"
)

// TooManyDuplicatesError reports an identifier value shared by more than two
// records. Two records sharing a value is resolvable, since at most one of
// them can carry the other identifier too; three or more means the upstream
// data is inconsistent and no automatic resolution is safe.
type TooManyDuplicatesError struct {
	// Field is the colliding identifier field, "pmcid" or "pmid".
	Field string

	// Value is the shared identifier value.
	Value string

	// Records holds every record carrying the value, sorted.
	Records []types.ArticleIDs
}

func (e *TooManyDuplicatesError) Error() string {
	return fmt.Sprintf("too many duplicates for %s=%s: %d records", e.Field, e.Value, len(e.Records))
}

// Merge collapses duplicate identifier records. Records with neither
// identifier are discarded, exact duplicates collapse to one, and then two
// collision passes run in order: first over pmcid values, then over pmid
// values on the survivors of the first pass. In each pass a value shared by
// exactly two records keeps the record that also carries the other
// identifier; a value shared by more than two records returns a
// TooManyDuplicatesError. The result is sorted by pmcid then pmid, so the
// output does not depend on input order.
func Merge(records []types.ArticleIDs) ([]types.ArticleIDs, error) {
	unique := make(map[types.ArticleIDs]struct{}, len(records))
	for _, r := range records {
		if r.IsZero() {
			continue
		}
		unique[r] = struct{}{}
	}

	// The pmid pass must see the survivors of the pmcid pass: a record can
	// win its pmcid collision and still lose a pmid collision later.
	if err := resolveCollisions(unique, "pmcid"); err != nil {
		return nil, err
	}
	if err := resolveCollisions(unique, "pmid"); err != nil {
		return nil, err
	}

	out := make([]types.ArticleIDs, 0, len(unique))
	for r := range unique {
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

// resolveCollisions removes, for each identifier value under field that is
// shared by exactly two records in set, the record missing the other
// identifier. Values shared by more than two records are fatal.
func resolveCollisions(set map[types.ArticleIDs]struct{}, field string) error {
	key, other := fieldSelectors(field)

	groups := make(map[string][]types.ArticleIDs)
	for r := range set {
		if v := key(r); v != "" {
			groups[v] = append(groups[v], r)
		}
	}

	for value, members := range groups {
		if len(members) == 1 {
			continue
		}
		if len(members) > 2 {
			sortRecords(members)
			return &TooManyDuplicatesError{Field: field, Value: value, Records: members}
		}

		a, b := members[0], members[1]
		switch {
		case other(a) == "" && other(b) != "":
			delete(set, a)
		case other(b) == "" && other(a) != "":
			delete(set, b)
		default:
			// Both records carry a conflicting other identifier. Keep the
			// smaller one so the outcome does not depend on input order.
			if other(a) < other(b) {
				delete(set, b)
			} else {
				delete(set, a)
			}
		}
	}
	return nil
}

func fieldSelectors(field string) (key, other func(types.ArticleIDs) string) {
	if field == "pmcid" {
		return func(r types.ArticleIDs) string { return r.PMCID },
			func(r types.ArticleIDs) string { return r.PMID }
	}
	return func(r types.ArticleIDs) string { return r.PMID },
		func(r types.ArticleIDs) string { return r.PMCID }
}

func sortRecords(records []types.ArticleIDs) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].PMCID != records[j].PMCID {
			return records[i].PMCID < records[j].PMCID
		}
		return records[i].PMID < records[j].PMID
	})
}
