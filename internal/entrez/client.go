// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package entrez talks to the NCBI E-utilities endpoints. A search runs in
// two steps: esearch parks the matching record set on the Entrez history
// server and returns a WebEnv/QueryKey handle, then esummary pages through
// the stored set up to 500 records at a time. Identifier extraction turns
// the summaries into ArticleIDs records.
package entrez

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/pdiddy/entrez-harvest/internal/httputil"
	"github.com/pdiddy/entrez-harvest/pkg/types"
)

// eutilsBase is the NCBI E-utilities endpoint prefix. Declared as a var so
// tests can substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const (
	searchEndpoint  = "esearch.fcgi"
	summaryEndpoint = "esummary.fcgi"

	// MaxPageSize is the hard cap esummary enforces on retmax.
	MaxPageSize = 500

	toolName = "entrez-harvest"
)

// ErrRequestTooLarge reports an HTTP 414 from the E-utilities server: the
// query URL exceeded what the server accepts. Retrying cannot help; the
// query length budget must shrink instead.
var ErrRequestTooLarge = errors.New("query URL exceeds the length the server accepts")

// Client issues E-utilities requests against one NCBI endpoint set.
type Client struct {
	// HTTPClient issues the requests. Nil falls back to a default client
	// with the configured timeout.
	HTTPClient *http.Client

	// Config carries the transport knobs.
	Config types.HTTPConfig

	// Limiter spaces requests to honor NCBI rate etiquette. Nil disables
	// client-side throttling.
	Limiter *rate.Limiter

	// APIKey raises the NCBI rate allowance from 3 to 10 requests per
	// second. Optional.
	APIKey string

	// Email is sent with every request so NCBI can reach the operator.
	// Optional.
	Email string

	// Log receives progress and warning lines. Nil means discard.
	Log io.Writer
}

// NewClient builds a client from cfg, deriving the rate limiter from
// cfg.RequestsPerSecond.
func NewClient(cfg types.HTTPConfig, apiKey, email string) *Client {
	c := &Client{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Config:     cfg,
		APIKey:     apiKey,
		Email:      email,
	}
	if cfg.RequestsPerSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Config.Timeout}
}

func (c *Client) logW() io.Writer {
	if c.Log == nil {
		return io.Discard
	}
	return c.Log
}

// get performs one E-utilities GET and returns the response body. The
// common parameters (retmode, tool, email, api_key) are added here.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params.Set("retmode", "json")
	params.Set("tool", toolName)
	if c.Email != "" {
		params.Set("email", c.Email)
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}

	reqURL := eutilsBase + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client(), req, c.Config.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestURITooLong {
		return nil, fmt.Errorf("%w: %d characters", ErrRequestTooLarge, len(reqURL))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	return body, nil
}

// SearchAndStore runs an esearch with usehistory=y, parking the matching
// record set on the history server. The returned StorageInfo carries the
// match count and the WebEnv/QueryKey handle for fetching summaries.
func (c *Client) SearchAndStore(ctx context.Context, searchQuery string, db types.Database) (types.StorageInfo, error) {
	params := url.Values{
		"db":         {string(db)},
		"term":       {searchQuery},
		"usehistory": {"y"},
	}
	body, err := c.get(ctx, searchEndpoint, params)
	if err != nil {
		return types.StorageInfo{}, fmt.Errorf("searching %s: %w", db, err)
	}

	var sr esearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return types.StorageInfo{}, fmt.Errorf("parsing esearch response: %w", err)
	}
	count, err := strconv.Atoi(sr.Result.Count)
	if err != nil {
		return types.StorageInfo{}, fmt.Errorf("esearch count %q is not a number: %w", sr.Result.Count, err)
	}

	return types.StorageInfo{
		Database: db,
		Count:    count,
		WebEnv:   sr.Result.WebEnv,
		QueryKey: sr.Result.QueryKey,
	}, nil
}

// resultSet accumulates the summaries fetched for one stored query: the
// record ids in fetch order plus the records keyed by id.
type resultSet struct {
	uids    []string
	records map[string]summaryRecord
}

// fetchStored pages through the summaries of a stored result set. A page
// whose payload lacks the result block is skipped with a warning; transport
// failures and non-200 statuses abort the fetch.
func (c *Client) fetchStored(ctx context.Context, info types.StorageInfo) (*resultSet, error) {
	rs := &resultSet{records: make(map[string]summaryRecord, info.Count)}

	remaining := info.Count
	for offset := 0; remaining > 0; {
		limit := remaining
		if limit > MaxPageSize {
			limit = MaxPageSize
		}

		if err := c.fetchPage(ctx, info, offset, limit, rs); err != nil {
			return nil, fmt.Errorf("fetching %s records %d-%d: %w",
				info.Database, offset, offset+limit-1, err)
		}

		offset += limit
		remaining -= limit
	}
	return rs, nil
}

// fetchPage runs one esummary call and folds its records into rs.
func (c *Client) fetchPage(ctx context.Context, info types.StorageInfo, offset, limit int, rs *resultSet) error {
	params := url.Values{
		"db":        {string(info.Database)},
		"query_key": {info.QueryKey},
		"WebEnv":    {info.WebEnv},
		"retstart":  {strconv.Itoa(offset)},
		"retmax":    {strconv.Itoa(limit)},
	}
	body, err := c.get(ctx, summaryEndpoint, params)
	if err != nil {
		return err
	}

	var env esummaryResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parsing esummary response: %w", err)
	}
	if env.Result == nil {
		fmt.Fprintf(c.logW(), "warning: %s summary page at %d has no result block, skipping\n",
			info.Database, offset)
		return nil
	}

	for key, raw := range env.Result {
		if key == "uids" {
			var uids []string
			if err := json.Unmarshal(raw, &uids); err != nil {
				fmt.Fprintf(c.logW(), "warning: undecodable uid list in %s page at %d\n",
					info.Database, offset)
				continue
			}
			rs.uids = append(rs.uids, uids...)
			continue
		}
		var rec summaryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			fmt.Fprintf(c.logW(), "warning: undecodable %s summary record %s, skipping\n",
				info.Database, key)
			continue
		}
		rs.records[key] = rec
	}
	return nil
}

// SearchAndFetch runs the full pipeline for one query against one database:
// store the result set, page through its summaries, extract identifiers.
// Zero matches is not an error and yields no records.
func (c *Client) SearchAndFetch(ctx context.Context, searchQuery string, db types.Database) ([]types.ArticleIDs, error) {
	info, err := c.SearchAndStore(ctx, searchQuery, db)
	if err != nil {
		return nil, err
	}
	if info.Count == 0 {
		fmt.Fprintf(c.logW(), "no results in %s\n", db)
		return nil, nil
	}

	rs, err := c.fetchStored(ctx, info)
	if err != nil {
		return nil, err
	}

	ids := rs.extract(db, c.logW())
	fmt.Fprintf(c.logW(), "found %d articles in %s\n", len(ids), db)
	return ids, nil
}

// E-utilities JSON structures. Counts arrive as strings.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count    string `json:"count"`
	WebEnv   string `json:"webenv"`
	QueryKey string `json:"querykey"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type summaryRecord struct {
	ArticleIDs []recordID `json:"articleids"`
}

type recordID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
