package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/pod-archive/app/archive"
)

// fixed width so that text order is time order
const timeFormat = "2006-01-02 15:04:05.000000000"

// Catalog records batch runs and their per-feed and per-episode outcomes.
type Catalog struct {
	db *DB
}

// Open connects to the catalog at path and brings its schema up to date.
func Open(path string) (*Catalog, error) {
	db, err := NewConnection(path)
	if err != nil {
		return nil, err
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Catalog ready", "path", path, "schema_version", version, "dirty", dirty)

	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) StartRun(runID string, startedAt time.Time) error {
	_, err := c.db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, runID, formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (c *Catalog) FinishRun(runID string, finishedAt time.Time) error {
	res, err := c.db.Exec(`UPDATE runs SET finished_at = ? WHERE id = ?`, formatTime(finishedAt), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// RecordFeed stores one feed result and all of its episodes in a single
// transaction.
func (c *Catalog) RecordFeed(runID string, result archive.FeedResult) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO feed_outcomes (run_id, feed_name, folder, status, reason)
		VALUES (?, ?, ?, ?, ?)
	`, runID, result.Name, result.Folder, string(result.Status), result.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert feed outcome: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO episode_outcomes (run_id, folder, episode_key, title, filename, filesize, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare episode insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range result.Episodes {
		if _, err := stmt.Exec(runID, result.Folder, e.Key, e.Title, e.Filename, e.Filesize, string(e.Status), e.Reason); err != nil {
			return fmt.Errorf("failed to insert episode outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feed outcome: %w", err)
	}
	return nil
}

const runColumns = `
	r.id, r.started_at, r.finished_at,
	(SELECT COUNT(*) FROM feed_outcomes f WHERE f.run_id = r.id),
	(SELECT COUNT(*) FROM episode_outcomes e WHERE e.run_id = r.id AND e.status = 'archived'),
	(SELECT COUNT(*) FROM episode_outcomes e WHERE e.run_id = r.id AND e.status = 'skipped'),
	(SELECT COUNT(*) FROM episode_outcomes e WHERE e.run_id = r.id AND e.status = 'failed')
`

// ListRuns returns the most recent runs first.
func (c *Catalog) ListRuns(limit int) ([]Run, error) {
	rows, err := c.db.Query(`SELECT `+runColumns+` FROM runs r ORDER BY r.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// GetRun returns nil without error when the run does not exist.
func (c *Catalog) GetRun(runID string) (*Run, error) {
	row := c.db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (c *Catalog) GetFeedOutcomes(runID string) ([]FeedOutcome, error) {
	rows, err := c.db.Query(`
		SELECT feed_name, folder, status, reason
		FROM feed_outcomes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []FeedOutcome
	for rows.Next() {
		var o FeedOutcome
		if err := rows.Scan(&o.FeedName, &o.Folder, &o.Status, &o.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan feed outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (c *Catalog) GetEpisodeOutcomes(runID string) ([]EpisodeOutcome, error) {
	rows, err := c.db.Query(`
		SELECT folder, episode_key, title, filename, filesize, status, reason
		FROM episode_outcomes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query episode outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []EpisodeOutcome
	for rows.Next() {
		var o EpisodeOutcome
		if err := rows.Scan(&o.Folder, &o.Key, &o.Title, &o.Filename, &o.Filesize, &o.Status, &o.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan episode outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
	)
	err := s.Scan(&run.ID, &startedAt, &finishedAt, &run.Feeds, &run.Archived, &run.Skipped, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}

	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q in catalog: %w", s, err)
	}
	return t, nil
}
