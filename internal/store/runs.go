package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dmvScrapper/pkg/scraper"
)

// Run statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is the history record of one discovery run
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	Stage       string
	Error       string
	Visited     int
	Reported    int
	NotifyError string
}

func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Observation is a stored location result. Date is empty when the
// location had no appointment.
type Observation struct {
	Location string
	Date     string
	Reported bool
}

// timeLayout keeps stored timestamps fixed-width so they sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrRunNotFound = errors.New("run not found")

// SaveRun stores a run with every raw observation, marking those that
// survived filtering as reported.
func (d *DB) SaveRun(ctx context.Context, run Run, raw, reported []scraper.Observation) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, status, stage, error, visited, reported, notify_error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Status, run.Stage, run.Error, run.Visited, run.Reported, run.NotifyError,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	isReported := make(map[string]bool, len(reported))
	for _, o := range reported {
		isReported[strings.ToLower(o.Location())] = true
	}

	for i, o := range raw {
		date := ""
		if day, ok := o.Date(); ok {
			date = day.Format(scraper.DateLayout)
		}
		rep := 0
		if date != "" && isReported[strings.ToLower(o.Location())] {
			rep = 1
			// only the first occurrence of a name is reported
			delete(isReported, strings.ToLower(o.Location()))
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO observations (run_id, seq, location, date, reported)
VALUES (?, ?, ?, ?, ?);`, run.ID, i, o.Location(), date, rep); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, started_at, finished_at, status, stage, error, visited, reported, notify_error
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run by id
func (d *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT id, started_at, finished_at, status, stage, error, visited, reported, notify_error
FROM runs WHERE id = ?;`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Observations returns a run's observations in discovery order
func (d *DB) Observations(ctx context.Context, runID string) ([]Observation, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT location, date, reported FROM observations WHERE run_id = ? ORDER BY seq;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var rep int
		if err := rows.Scan(&o.Location, &o.Date, &rep); err != nil {
			return nil, err
		}
		o.Reported = rep != 0
		out = append(out, o)
	}
	return out, rows.Err()
}

// Prune deletes runs that started before cutoff
func (d *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?;`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                 Run
		started, finished string
	)
	if err := s.Scan(&r.ID, &started, &finished, &r.Status, &r.Stage, &r.Error, &r.Visited, &r.Reported, &r.NotifyError); err != nil {
		return Run{}, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("run %s finished_at: %w", r.ID, err)
	}
	return r, nil
}
