package runstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// dbConn is the slice of *sql.DB the Postgres backend uses.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewPostgres opens a Postgres-backed store and verifies the connection.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS review_runs (
    id TEXT PRIMARY KEY,
    repo TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    status TEXT NOT NULL,
    iterations INT NOT NULL DEFAULT 0,
    warnings INT NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    finished_at TIMESTAMP WITH TIME ZONE
);
`)
	})
	return s.schemaErr
}

func (s *Store) createDB(ctx context.Context, run Run) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO review_runs (id, repo, provider, model, status, iterations, warnings, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, run.ID, run.Repo, run.Provider, run.Model, string(run.Status),
		run.Iterations, run.Warnings, run.Error, run.StartedAt, nullTime(run.FinishedAt))
	return err
}

func (s *Store) getDB(ctx context.Context, id string) (Run, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Run{}, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, repo, provider, model, status, iterations, warnings, error, started_at, finished_at
FROM review_runs WHERE id = $1
`, id)
	return scanRun(row.Scan)
}

func (s *Store) updateDB(ctx context.Context, id string, fn func(*Run)) (Run, error) {
	run, err := s.getDB(ctx, id)
	if err != nil {
		return Run{}, err
	}
	fn(&run)
	run.ID = id
	_, err = s.db.ExecContext(ctx, `
UPDATE review_runs
SET repo=$2, provider=$3, model=$4, status=$5, iterations=$6, warnings=$7, error=$8, started_at=$9, finished_at=$10
WHERE id=$1
`, run.ID, run.Repo, run.Provider, run.Model, string(run.Status),
		run.Iterations, run.Warnings, run.Error, run.StartedAt, nullTime(run.FinishedAt))
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) listDB(ctx context.Context) ([]Run, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, repo, provider, model, status, iterations, warnings, error, started_at, finished_at
FROM review_runs ORDER BY started_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(...any) error) (Run, error) {
	var run Run
	var status string
	var finished sql.NullTime
	err := scan(&run.ID, &run.Repo, &run.Provider, &run.Model, &status,
		&run.Iterations, &run.Warnings, &run.Error, &run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return run, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
