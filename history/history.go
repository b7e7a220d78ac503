// Package history keeps an optional sqlite log of collection runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"github.com/scipunch/ainews/collector"
)

//go:embed schema.sql
var schemaSQL string

type History struct {
	db *sql.DB
}

// Run is one recorded collection run.
type Run struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Articles      int
	Collected     int
	Duplicates    int
	FailedSources int
	Written       bool
	Err           string
}

type Stats struct {
	Runs         int
	SourceRuns   int
	LastRun      time.Time
	LastArticles int
}

func (s Stats) String() string {
	if s.Runs == 0 {
		return "no runs recorded"
	}
	return fmt.Sprintf("%s runs (%s source fetches), last %s with %d articles",
		humanize.Comma(int64(s.Runs)),
		humanize.Comma(int64(s.SourceRuns)),
		humanize.Time(s.LastRun),
		s.LastArticles,
	)
}

// Open initializes the history database at path
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &History{db: db}, nil
}

// RecordRun stores report and its per-source results. written tells whether
// the envelope was persisted.
func (h *History) RecordRun(ctx context.Context, report collector.Report, written bool) (int64, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(started_at, finished_at, articles, collected, duplicates, failed_sources, written, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.StartedAt.UnixMilli(), report.FinishedAt.UnixMilli(),
		len(report.Articles), report.Collected, report.Duplicates, report.Failed(),
		written, errString(report.Err),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, s := range report.Sources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO source_runs
			(run_id, name, location, entries, accepted, rejected, filtered, invalid, malformed, duration_ms, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, s.Source.Name, s.Source.Location(),
			s.Entries, s.Accepted(), s.Rejected, s.Filtered, s.Invalid,
			s.Malformed, s.Duration.Milliseconds(), errString(s.Err),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert source run for %q: %w", s.Source.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Recent returns up to n runs, newest first.
func (h *History) Recent(n int) ([]Run, error) {
	rows, err := h.db.Query(`
		SELECT id, started_at, finished_at, articles, collected, duplicates, failed_sources, written, error
		FROM runs ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		err := rows.Scan(&r.ID, &started, &finished, &r.Articles, &r.Collected,
			&r.Duplicates, &r.FailedSources, &r.Written, &r.Err)
		if err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats summarizes the recorded runs
func (h *History) Stats() (Stats, error) {
	var stats Stats

	if err := h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.Runs); err != nil {
		return stats, err
	}
	if err := h.db.QueryRow("SELECT COUNT(*) FROM source_runs").Scan(&stats.SourceRuns); err != nil {
		return stats, err
	}

	var started int64
	err := h.db.QueryRow(
		"SELECT started_at, articles FROM runs ORDER BY id DESC LIMIT 1",
	).Scan(&started, &stats.LastArticles)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return stats, err
	}
	stats.LastRun = time.UnixMilli(started)

	return stats, nil
}

// Clear removes every recorded run
func (h *History) Clear() error {
	if _, err := h.db.Exec("DELETE FROM source_runs"); err != nil {
		return fmt.Errorf("failed to clear source runs: %w", err)
	}
	if _, err := h.db.Exec("DELETE FROM runs"); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}

func (h *History) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

// DefaultPath returns the history database path under the XDG state directory
func DefaultPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "history.db"
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "ainews", "history.db")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
