// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrez

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/entrez-harvest/pkg/types"
)

// absentID is the placeholder NCBI uses for an identifier that does not
// exist on a record.
const absentID = "0"

// extractIDs pulls the pmcid/pmid pair out of one summary record. The
// articleids idtype labels differ between databases: PMC labels the PubMed
// id "pmid" and its own id "pmcid", while PubMed labels them "pubmed" and
// "pmc". A record with no usable identifier returns ok=false.
func extractIDs(rec summaryRecord, db types.Database) (ids types.ArticleIDs, ok bool) {
	for _, id := range rec.ArticleIDs {
		if id.Value == "" || id.Value == absentID {
			continue
		}
		switch db {
		case types.DatabasePMC:
			switch id.IDType {
			case "pmid":
				ids.PMID = id.Value
			case "pmcid":
				ids.PMCID = normalizePMCID(id.Value)
			}
		case types.DatabasePubMed:
			switch id.IDType {
			case "pubmed":
				ids.PMID = id.Value
			case "pmc":
				ids.PMCID = normalizePMCID(id.Value)
			}
		}
	}
	if ids.IsZero() {
		return types.ArticleIDs{}, false
	}
	return ids, true
}

// normalizePMCID ensures the PMC prefix is present exactly once.
func normalizePMCID(v string) string {
	if strings.HasPrefix(v, "PMC") {
		return v
	}
	return "PMC" + v
}

// extract converts a fetched result set into identifier records, following
// the stored uid order. A uid without a record, or a record without usable
// identifiers, is skipped; a mismatch between the uid list and the record
// map is reported once to w.
func (r *resultSet) extract(db types.Database, w io.Writer) []types.ArticleIDs {
	if len(r.uids) != len(r.records) {
		fmt.Fprintf(w, "warning: %s returned %d uids but %d records\n",
			db, len(r.uids), len(r.records))
	}

	var out []types.ArticleIDs
	for _, uid := range r.uids {
		rec, ok := r.records[uid]
		if !ok {
			continue
		}
		if ids, ok := extractIDs(rec, db); ok {
			out = append(out, ids)
		}
	}
	return out
}
