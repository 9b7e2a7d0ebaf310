package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/entrez-harvest/internal/query"
	"github.com/pdiddy/entrez-harvest/pkg/types"
)

// --- mock searcher ---

type call struct {
	query string
	db    types.Database
}

type mockSearcher struct {
	mu    sync.Mutex
	calls []call
	fn    func(searchQuery string, db types.Database) ([]types.ArticleIDs, error)
}

func (m *mockSearcher) SearchAndFetch(_ context.Context, searchQuery string, db types.Database) ([]types.ArticleIDs, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{searchQuery, db})
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(searchQuery, db)
	}
	return nil, nil
}

func (m *mockSearcher) recorded() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Devices:    []string{"a", "b", "c"},
		Indicators: []string{"1", "2", "3"},
		Selector:   SelectAll,
		Config: types.RetrievalConfig{
			MaxQueryLength: 39,
			OutputDir:      t.TempDir(),
		},
	}
}

func readResults(t *testing.T, dir string) []types.ArticleIDs {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ResultsFileName))
	if err != nil {
		t.Fatalf("reading results file: %v", err)
	}
	var ids []types.ArticleIDs
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatalf("parsing results file: %v", err)
	}
	return ids
}

// --- selectors ---

func TestParseSelector(t *testing.T) {
	for _, valid := range []string{"pmc", "pubmed", "all"} {
		if _, err := ParseSelector(valid); err != nil {
			t.Errorf("ParseSelector(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseSelector("scopus"); err == nil {
		t.Error("ParseSelector(scopus) = nil, want error")
	}
}

func TestSelectorDatabases(t *testing.T) {
	tests := []struct {
		sel  Selector
		want []types.Database
	}{
		{SelectPMC, []types.Database{types.DatabasePMC}},
		{SelectPubMed, []types.Database{types.DatabasePubMed}},
		{SelectAll, []types.Database{types.DatabasePMC, types.DatabasePubMed}},
	}
	for _, tt := range tests {
		got, err := tt.sel.Databases()
		if err != nil {
			t.Errorf("Databases(%s) error = %v", tt.sel, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Databases(%s) = %v, want %v", tt.sel, got, tt.want)
		}
	}
	if _, err := Selector("bad").Databases(); err == nil {
		t.Error("Databases(bad) = nil, want error")
	}
}

// --- sequential runs ---

func TestRunSequentialVisitsTasksInOrder(t *testing.T) {
	m := &mockSearcher{}
	opts := testOptions(t)

	var out bytes.Buffer
	res, err := Run(context.Background(), m, opts, &out)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	queries, err := query.Build(opts.Devices, opts.Indicators, 39, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Queries != len(queries) {
		t.Errorf("Queries = %d, want %d", res.Queries, len(queries))
	}

	var want []call
	for _, q := range queries {
		want = append(want, call{q, types.DatabasePMC}, call{q, types.DatabasePubMed})
	}
	if got := m.recorded(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestRunMergesAndWritesResults(t *testing.T) {
	m := &mockSearcher{
		fn: func(_ string, db types.Database) ([]types.ArticleIDs, error) {
			// Both databases report the same article with different
			// completeness; the merge keeps the complete record.
			if db == types.DatabasePMC {
				return []types.ArticleIDs{{PMCID: "PMC1", PMID: "10"}}, nil
			}
			return []types.ArticleIDs{{PMID: "10"}, {PMID: "77"}}, nil
		},
	}
	opts := testOptions(t)

	res, err := Run(context.Background(), m, opts, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []types.ArticleIDs{{PMID: "77"}, {PMCID: "PMC1", PMID: "10"}}
	if !reflect.DeepEqual(res.IDs, want) {
		t.Errorf("IDs = %v, want %v", res.IDs, want)
	}
	if got := readResults(t, opts.Config.OutputDir); !reflect.DeepEqual(got, want) {
		t.Errorf("file = %v, want %v", got, want)
	}
	if res.Raw != 12 {
		t.Errorf("Raw = %d, want 12", res.Raw)
	}
	if res.FinishedAt.Before(res.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
}

func TestRunWritesIntermediateResults(t *testing.T) {
	m := &mockSearcher{
		fn: func(_ string, db types.Database) ([]types.ArticleIDs, error) {
			if db == types.DatabasePMC {
				return []types.ArticleIDs{{PMCID: "PMC5"}}, nil
			}
			return nil, nil
		},
	}
	opts := testOptions(t)
	opts.Config.Intermediate = true

	if _, err := Run(context.Background(), m, opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// One directory per query index, one file per database.
	pmcFile := filepath.Join(opts.Config.OutputDir, intermediateDir, "0", "pmc.json")
	data, err := os.ReadFile(pmcFile)
	if err != nil {
		t.Fatalf("reading %s: %v", pmcFile, err)
	}
	var ids []types.ArticleIDs
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0].PMCID != "PMC5" {
		t.Errorf("intermediate ids = %v", ids)
	}

	// Empty per-task results serialize as an empty list, not null.
	pubmedFile := filepath.Join(opts.Config.OutputDir, intermediateDir, "3", "pubmed.json")
	data, err = os.ReadFile(pubmedFile)
	if err != nil {
		t.Fatalf("reading %s: %v", pubmedFile, err)
	}
	if string(bytes.TrimSpace(data)) != "[]" {
		t.Errorf("empty intermediate = %q, want []", data)
	}
}

func TestRunAbortsOnQueryError(t *testing.T) {
	boom := errors.New("esearch exploded")
	m := &mockSearcher{}
	m.fn = func(string, types.Database) ([]types.ArticleIDs, error) {
		if len(m.recorded()) == 3 {
			return nil, boom
		}
		return nil, nil
	}
	opts := testOptions(t)

	_, err := Run(context.Background(), m, opts, &bytes.Buffer{})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped searcher failure", err)
	}
	if _, statErr := os.Stat(filepath.Join(opts.Config.OutputDir, ResultsFileName)); !os.IsNotExist(statErr) {
		t.Error("results file written despite failed run")
	}
}

func TestRunAbortsOnMergeConflict(t *testing.T) {
	// Three records claiming the same pmcid across databases is fatal.
	m := &mockSearcher{
		fn: func(_ string, db types.Database) ([]types.ArticleIDs, error) {
			if db == types.DatabasePMC {
				return []types.ArticleIDs{{PMCID: "PMC1", PMID: "1"}}, nil
			}
			return []types.ArticleIDs{{PMCID: "PMC1", PMID: "2"}, {PMCID: "PMC1", PMID: "3"}}, nil
		},
	}
	opts := testOptions(t)
	opts.Devices = []string{"a"}
	opts.Indicators = []string{"1"}
	opts.Config.MaxQueryLength = 1000

	_, err := Run(context.Background(), m, opts, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Run() = nil, want merge conflict")
	}
}

func TestRunPropagatesQueryBuildErrors(t *testing.T) {
	opts := testOptions(t)
	opts.Config.MaxQueryLength = 5

	_, err := Run(context.Background(), &mockSearcher{}, opts, &bytes.Buffer{})
	if !errors.Is(err, query.ErrLengthBudget) {
		t.Errorf("error = %v, want ErrLengthBudget", err)
	}

	opts = testOptions(t)
	opts.Config.StartYear, opts.Config.EndYear = 2024, 2023
	_, err = Run(context.Background(), &mockSearcher{}, opts, &bytes.Buffer{})
	if !errors.Is(err, query.ErrYearOrder) {
		t.Errorf("error = %v, want ErrYearOrder", err)
	}
}

// --- concurrent runs ---

func TestRunConcurrentRespectsInFlightBound(t *testing.T) {
	var inFlight, peak int32
	m := &mockSearcher{
		fn: func(string, types.Database) ([]types.ArticleIDs, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil, nil
		},
	}
	opts := testOptions(t)
	opts.Concurrent = true
	opts.Config.MaxInFlight = 2

	if _, err := Run(context.Background(), m, opts, &bytes.Buffer{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := len(m.recorded()); got != 8 {
		t.Errorf("calls = %d, want 8", got)
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", p)
	}
}

func TestRunConcurrentMatchesSequentialOutput(t *testing.T) {
	fn := func(searchQuery string, db types.Database) ([]types.ArticleIDs, error) {
		// Derive a stable fake record from the task so both drivers see
		// identical inputs.
		return []types.ArticleIDs{{PMID: fmt.Sprintf("%d-%s", len(searchQuery), db)}}, nil
	}

	seqOpts := testOptions(t)
	seq, err := Run(context.Background(), &mockSearcher{fn: fn}, seqOpts, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("sequential Run() error = %v", err)
	}

	conOpts := testOptions(t)
	conOpts.Concurrent = true
	conOpts.Config.MaxInFlight = 4
	con, err := Run(context.Background(), &mockSearcher{fn: fn}, conOpts, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("concurrent Run() error = %v", err)
	}

	if !reflect.DeepEqual(seq.IDs, con.IDs) {
		t.Errorf("sequential = %v, concurrent = %v", seq.IDs, con.IDs)
	}
}

func TestRunConcurrentAbortsOnError(t *testing.T) {
	boom := errors.New("esummary exploded")
	var failed int32
	m := &mockSearcher{
		fn: func(_ string, db types.Database) ([]types.ArticleIDs, error) {
			if db == types.DatabasePubMed && atomic.CompareAndSwapInt32(&failed, 0, 1) {
				return nil, boom
			}
			return nil, nil
		},
	}
	opts := testOptions(t)
	opts.Concurrent = true
	opts.Config.MaxInFlight = 3

	_, err := Run(context.Background(), m, opts, &bytes.Buffer{})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped searcher failure", err)
	}
}
