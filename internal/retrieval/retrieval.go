// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval drives a full harvest: it expands the vocabularies into
// partitioned queries, runs every query against the selected databases,
// merges the identifier records, and persists the final list.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/entrez-harvest/internal/dedupe"
	"github.com/pdiddy/entrez-harvest/internal/query"
	"github.com/pdiddy/entrez-harvest/internal/storage"
	"github.com/pdiddy/entrez-harvest/pkg/types"
)

// ResultsFileName is the file under the output directory that receives the
// merged identifier list.
const ResultsFileName = "retrieved_ids.json"

// intermediateDir is the subdirectory for per-query, per-database results.
const intermediateDir = "intermediate_results"

// Selector names the database set a harvest runs against.
type Selector string

const (
	SelectPMC    Selector = "pmc"
	SelectPubMed Selector = "pubmed"
	SelectAll    Selector = "all"
)

// ParseSelector validates a database selector from the command line.
func ParseSelector(s string) (Selector, error) {
	switch Selector(s) {
	case SelectPMC, SelectPubMed, SelectAll:
		return Selector(s), nil
	}
	return "", fmt.Errorf("unknown database selector %q (want pmc, pubmed, or all)", s)
}

// Databases expands the selector into the concrete database list.
func (s Selector) Databases() ([]types.Database, error) {
	switch s {
	case SelectPMC:
		return []types.Database{types.DatabasePMC}, nil
	case SelectPubMed:
		return []types.Database{types.DatabasePubMed}, nil
	case SelectAll:
		return []types.Database{types.DatabasePMC, types.DatabasePubMed}, nil
	}
	return nil, fmt.Errorf("unknown database selector %q", string(s))
}

// Searcher runs one query against one database and returns the extracted
// identifier records.
type Searcher interface {
	SearchAndFetch(ctx context.Context, searchQuery string, db types.Database) ([]types.ArticleIDs, error)
}

// Options bundles the inputs of one harvest run.
type Options struct {
	// Devices and Indicators are the flattened term lists.
	Devices    []string
	Indicators []string

	// Selector picks the databases to query.
	Selector Selector

	// Concurrent runs query tasks in parallel, bounded by
	// Config.MaxInFlight, instead of one at a time.
	Concurrent bool

	// Config carries the length budget, year range, output locations and
	// the concurrency bound.
	Config types.RetrievalConfig
}

// Result summarizes a finished harvest.
type Result struct {
	// IDs is the merged identifier list, sorted.
	IDs []types.ArticleIDs

	// Queries is the number of partitioned queries, before multiplying by
	// the number of databases.
	Queries int

	// Raw counts the records across all tasks before merging.
	Raw int

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// task is one query/database pair in submission order.
type task struct {
	queryIndex int
	query      string
	db         types.Database
}

// Run executes a harvest: build the queries, run every query/database pair,
// merge the records, and write OutputDir/retrieved_ids.json. Progress goes
// to w. Any query failure, merge conflict, or write failure aborts the run
// without producing the results file.
func Run(ctx context.Context, client Searcher, opts Options, w io.Writer) (Result, error) {
	res := Result{StartedAt: time.Now()}

	queries, err := query.Build(opts.Devices, opts.Indicators,
		opts.Config.MaxQueryLength, opts.Config.StartYear, opts.Config.EndYear)
	if err != nil {
		return Result{}, err
	}
	dbs, err := opts.Selector.Databases()
	if err != nil {
		return Result{}, err
	}
	res.Queries = len(queries)

	tasks := make([]task, 0, len(queries)*len(dbs))
	for qi, q := range queries {
		for _, db := range dbs {
			tasks = append(tasks, task{queryIndex: qi, query: q, db: db})
		}
	}
	fmt.Fprintf(w, "running %d queries against %d databases (%d requests)\n",
		len(queries), len(dbs), len(tasks))

	var results [][]types.ArticleIDs
	if opts.Concurrent {
		results, err = runConcurrent(ctx, client, opts, tasks, w)
	} else {
		results, err = runSequential(ctx, client, opts, tasks, w)
	}
	if err != nil {
		return Result{}, err
	}

	var all []types.ArticleIDs
	for _, r := range results {
		all = append(all, r...)
	}
	res.Raw = len(all)

	merged, err := dedupe.Merge(all)
	if err != nil {
		return Result{}, err
	}
	res.IDs = merged

	outPath := filepath.Join(opts.Config.OutputDir, ResultsFileName)
	if err := storage.WriteJSON(outPath, merged); err != nil {
		return Result{}, err
	}

	res.FinishedAt = time.Now()
	fmt.Fprintf(w, "found %d unique articles (%d raw), wrote %s in %s\n",
		len(merged), len(all), outPath, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res, nil
}

func runSequential(ctx context.Context, client Searcher, opts Options, tasks []task, w io.Writer) ([][]types.ArticleIDs, error) {
	results := make([][]types.ArticleIDs, len(tasks))
	for i, tk := range tasks {
		ids, err := runTask(ctx, client, opts, tk, i, len(tasks), w)
		if err != nil {
			return nil, err
		}
		results[i] = ids
	}
	return results, nil
}

func runConcurrent(ctx context.Context, client Searcher, opts Options, tasks []task, w io.Writer) ([][]types.ArticleIDs, error) {
	sw := NewSafeWriter(w)
	results := make([][]types.ArticleIDs, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Config.MaxInFlight
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, tk := range tasks {
		g.Go(func() error {
			ids, err := runTask(gctx, client, opts, tk, i, len(tasks), sw)
			if err != nil {
				return err
			}
			results[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runTask(ctx context.Context, client Searcher, opts Options, tk task, n, total int, w io.Writer) ([]types.ArticleIDs, error) {
	fmt.Fprintf(w, "(%d/%d) %s: %s\n", n+1, total, tk.db, tk.query)

	ids, err := client.SearchAndFetch(ctx, tk.query, tk.db)
	if err != nil {
		return nil, fmt.Errorf("query %d against %s: %w", tk.queryIndex+1, tk.db, err)
	}
	fmt.Fprintf(w, "(%d/%d) %s: %d records\n", n+1, total, tk.db, len(ids))

	if opts.Config.Intermediate {
		toSave := ids
		if toSave == nil {
			toSave = []types.ArticleIDs{}
		}
		path := filepath.Join(opts.Config.OutputDir, intermediateDir,
			strconv.Itoa(tk.queryIndex), string(tk.db)+".json")
		if err := storage.WriteJSON(path, toSave); err != nil {
			// Intermediate persistence is best effort.
			fmt.Fprintf(w, "warning: %v\n", err)
		}
	}
	return ids, nil
}

// NewSafeWriter wraps w so that whole writes from concurrent goroutines do
// not interleave. The retrieve command hands the same wrapped writer to the
// Entrez client and to Run when running concurrently.
func NewSafeWriter(w io.Writer) io.Writer {
	return &syncWriter{w: w}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
