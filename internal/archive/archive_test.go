// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/entrez-harvest/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(started time.Time) Run {
	return Run{
		ID:         NewRunID(),
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Databases:  "pmc,pubmed",
		QueryCount: 4,
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "deep", "archive.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Close()
}

func TestRecordFirstRunIsAllNew(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	newCount, err := s.Record(ctx, testRun(time.Now()), []types.ArticleIDs{
		{PMCID: "PMC1", PMID: "10"},
		{PMID: "20"},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if newCount != 2 {
		t.Errorf("newCount = %d, want 2", newCount)
	}
}

func TestRecordCountsOnlyUnseenIdentifiers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Record(ctx, testRun(time.Now().Add(-time.Hour)), []types.ArticleIDs{
		{PMCID: "PMC1", PMID: "10"},
		{PMCID: "PMC2"},
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Matching either identifier of an earlier run marks a record as seen.
	newCount, err := s.Record(ctx, testRun(time.Now()), []types.ArticleIDs{
		{PMID: "10"},
		{PMCID: "PMC2", PMID: "99"},
		{PMCID: "PMC7"},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if newCount != 1 {
		t.Errorf("newCount = %d, want 1", newCount)
	}
}

func TestRecordDoesNotMatchOnEmptyFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Record(ctx, testRun(time.Now().Add(-time.Hour)), []types.ArticleIDs{
		{PMCID: "PMC1"},
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// A pmid-only record must not collide with a pmcid-only record just
	// because both leave the other column empty.
	newCount, err := s.Record(ctx, testRun(time.Now()), []types.ArticleIDs{
		{PMID: "42"},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if newCount != 1 {
		t.Errorf("newCount = %d, want 1", newCount)
	}
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	older := testRun(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	newer := testRun(time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC))
	if _, err := s.Record(ctx, older, []types.ArticleIDs{{PMID: "1"}}); err != nil {
		t.Fatalf("Record(older) error = %v", err)
	}
	if _, err := s.Record(ctx, newer, []types.ArticleIDs{{PMID: "2"}, {PMID: "3"}}); err != nil {
		t.Fatalf("Record(newer) error = %v", err)
	}

	runs, err := s.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("runs out of order: %s, %s", runs[0].ID, runs[1].ID)
	}
	if runs[0].ResultCount != 2 || runs[0].NewCount != 2 {
		t.Errorf("newer counts = %d/%d, want 2/2", runs[0].ResultCount, runs[0].NewCount)
	}
	if runs[0].Databases != "pmc,pubmed" || runs[0].QueryCount != 4 {
		t.Errorf("run metadata not preserved: %+v", runs[0])
	}

	limited, err := s.Runs(ctx, 1)
	if err != nil {
		t.Fatalf("Runs(limit=1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Errorf("limited = %+v, want only the newest run", limited)
	}
}
