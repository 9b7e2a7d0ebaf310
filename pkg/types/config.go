package types

import "time"

// HTTPConfig holds shared HTTP settings used by every Entrez call.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout, including body read.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "entrez-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of additional attempts after a failed
	// request. Zero disables retrying; a negative value selects the
	// transport default.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond caps the request rate against the E-utilities
	// endpoints. NCBI allows 3 requests per second without an API key and
	// 10 with one. Zero or negative disables client-side throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// RetrievalConfig holds the knobs for one harvest run.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxQueryLength is the exclusive upper bound on the length of a single
	// boolean query string. Term lists are partitioned so every query stays
	// strictly below this budget; the publication-date fragment is appended
	// afterwards and does not count against it.
	MaxQueryLength int `json:"max_query_length" yaml:"max_query_length"`

	// StartYear and EndYear bound the publication-date filter. Both zero
	// disables the filter; with exactly one set the filter pins that single
	// year; with both set it spans the inclusive range.
	StartYear int `json:"start_year" yaml:"start_year"`
	EndYear   int `json:"end_year" yaml:"end_year"`

	// OutputDir is the directory receiving the merged identifier list and
	// any intermediate per-query results.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Intermediate enables persisting per-query, per-database results under
	// OutputDir before merging.
	Intermediate bool `json:"intermediate" yaml:"intermediate"`

	// MaxInFlight bounds the number of query tasks running at once when the
	// concurrent driver is selected. Values below one mean sequential.
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight"`
}
