// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records harvest runs and the identifiers they produced in
// a local SQLite database, so consecutive runs can report what is new.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/entrez-harvest/pkg/types"
)

// Store manages the harvest archive SQLite database.
type Store struct {
	db *sql.DB
}

// Run describes one recorded harvest.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Databases   string
	QueryCount  int
	ResultCount int
	NewCount    int
}

// NewRunID returns a fresh identifier for a harvest run.
func NewRunID() string { return uuid.NewString() }

// Open opens or creates the archive database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			databases TEXT NOT NULL,
			query_count INTEGER NOT NULL,
			result_count INTEGER NOT NULL,
			new_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS article_ids (
			run_id TEXT NOT NULL REFERENCES runs(id),
			pmcid TEXT NOT NULL DEFAULT '',
			pmid TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_article_ids_run ON article_ids(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_article_ids_pmcid ON article_ids(pmcid)`,
		`CREATE INDEX IF NOT EXISTS idx_article_ids_pmid ON article_ids(pmid)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run with its merged identifier list and returns
// how many of the identifiers no earlier run had produced. An identifier
// counts as known when either its pmcid or its pmid appeared before.
func (s *Store) Record(ctx context.Context, run Run, ids []types.ArticleIDs) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	known, err := tx.PrepareContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM article_ids
			WHERE run_id != ?
			  AND ((pmcid != '' AND pmcid = ?) OR (pmid != '' AND pmid = ?))
		)`)
	if err != nil {
		return 0, fmt.Errorf("preparing lookup: %w", err)
	}
	defer known.Close()

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO article_ids (run_id, pmcid, pmid) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer insert.Close()

	newCount := 0
	for _, id := range ids {
		var seen bool
		if err := known.QueryRowContext(ctx, run.ID, id.PMCID, id.PMID).Scan(&seen); err != nil {
			return 0, fmt.Errorf("checking %s/%s: %w", id.PMCID, id.PMID, err)
		}
		if !seen {
			newCount++
		}
		if _, err := insert.ExecContext(ctx, run.ID, id.PMCID, id.PMID); err != nil {
			return 0, fmt.Errorf("inserting %s/%s: %w", id.PMCID, id.PMID, err)
		}
	}

	run.ResultCount = len(ids)
	run.NewCount = newCount
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, databases, query_count, result_count, new_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Databases, run.QueryCount, run.ResultCount, run.NewCount,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	return newCount, tx.Commit()
}

// Runs returns the recorded harvests, newest first. A limit of zero or less
// returns all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, finished_at, databases, query_count, result_count, new_count
	      FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Databases,
			&r.QueryCount, &r.ResultCount, &r.NewCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
