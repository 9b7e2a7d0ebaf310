// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the entrez-harvest
// pipeline: the identifier records the harvest produces, the Entrez
// history-server handle the search stage passes to the fetch stage, and the
// configuration blocks the CLI assembles.
package types

// Database identifies an NCBI E-utilities database.
type Database string

const (
	// DatabasePMC is the PubMed Central full-text archive.
	DatabasePMC Database = "pmc"

	// DatabasePubMed is the PubMed citation index.
	DatabasePubMed Database = "pubmed"
)

// ArticleIDs pairs the two identifiers an article can carry across the NCBI
// databases. Either field may be empty when the source record does not list
// the corresponding id; a record with both fields empty identifies nothing
// and is discarded upstream.
type ArticleIDs struct {
	// PMCID is the PubMed Central id, normalized to carry the "PMC" prefix.
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`

	// PMID is the PubMed id.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
}

// IsZero reports whether the record carries no identifier at all.
func (a ArticleIDs) IsZero() bool {
	return a.PMCID == "" && a.PMID == ""
}

// Partial reports whether exactly one of the two identifiers is present.
func (a ArticleIDs) Partial() bool {
	return (a.PMCID == "") != (a.PMID == "")
}

// StorageInfo is the server-side handle returned by a search-and-store call.
// WebEnv and QueryKey reference the result set parked on the Entrez history
// server; they are consumed by the paginated summary fetch for the same
// query and discarded afterwards. A zero Count comes with an empty handle.
type StorageInfo struct {
	// Database is the database the stored result set lives in.
	Database Database `json:"database"`

	// Count is the total number of results the search matched.
	Count int `json:"count"`

	// WebEnv is the history-server session token.
	WebEnv string `json:"web_env,omitempty"`

	// QueryKey selects the stored query within the WebEnv session.
	QueryKey string `json:"query_key,omitempty"`
}
