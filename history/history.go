// Package history keeps a bookkeeping record of finished crawl runs in
// a local SQLite database. Records are write-only during a crawl; a
// run never reads history to change its behavior.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sjlee/hanmicrawl/article"
	"github.com/sjlee/hanmicrawl/crawl"
)

// Store records run summaries using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		target_date TEXT NOT NULL,
		shape       TEXT NOT NULL,
		discovered  INTEGER NOT NULL,
		collected   INTEGER NOT NULL,
		delivery    TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		error       TEXT,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one run summary.
func (s *Store) Record(rec crawl.RunRecord) error {
	query := `INSERT INTO runs
		(run_id, target_date, shape, discovered, collected, delivery, outcome, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		rec.RunID.String(),
		rec.TargetDate,
		string(rec.Shape),
		rec.Discovered,
		rec.Collected,
		rec.Delivery,
		rec.Outcome,
		rec.Error,
		rec.StartedAt.Format(time.RFC3339),
		rec.FinishedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	return nil
}

// Runs returns all recorded runs, most recent first.
func (s *Store) Runs() ([]crawl.RunRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, target_date, shape, discovered, collected,
		delivery, outcome, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var recs []crawl.RunRecord
	for rows.Next() {
		var rec crawl.RunRecord
		var runID, shape, errText, started, finished string
		if err := rows.Scan(&runID, &rec.TargetDate, &shape, &rec.Discovered, &rec.Collected,
			&rec.Delivery, &rec.Outcome, &errText, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := rec.RunID.UnmarshalText([]byte(runID)); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", runID, err)
		}
		rec.Shape = article.ListingShape(shape)
		rec.Error = errText
		if rec.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		if rec.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finished, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
