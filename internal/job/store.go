package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"choco-backend/internal/store"
)

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")

// Store persists job records so finished and in-flight jobs survive a
// restart.
type Store struct {
	db store.Querier
}

// NewStore wraps an open database handle.
func NewStore(db store.Querier) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the jobs table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS report_jobs (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL DEFAULT '',
	filename     TEXT NOT NULL,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	message      TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	output_path  TEXT NOT NULL DEFAULT '',
	warnings     TEXT NOT NULL DEFAULT '[]',
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_report_jobs_user ON report_jobs (user_id, created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create job schema: %w", err)
	}
	return nil
}

// Save upserts a job record.
func (s *Store) Save(ctx context.Context, j *Job) error {
	warnings, err := json.Marshal(j.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}
	var completedAt any
	if j.CompletedAt != nil {
		completedAt = j.CompletedAt.UTC()
	}
	const query = `
INSERT INTO report_jobs
	(id, user_id, filename, status, progress, message, error, output_path, warnings, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	status = excluded.status,
	progress = excluded.progress,
	message = excluded.message,
	error = excluded.error,
	output_path = excluded.output_path,
	warnings = excluded.warnings,
	updated_at = excluded.updated_at,
	completed_at = excluded.completed_at`
	_, err = s.db.ExecContext(ctx, query,
		j.ID, j.UserID, j.Filename, string(j.Status), j.Progress, j.Message,
		j.Error, j.OutputPath, string(warnings),
		j.CreatedAt.UTC(), j.UpdatedAt.UTC(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", j.ID, err)
	}
	return nil
}

// Get loads one job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	const query = `
SELECT id, user_id, filename, status, progress, message, error, output_path, warnings, created_at, updated_at, completed_at
FROM report_jobs WHERE id = ?`
	j, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return j, nil
}

// List returns all jobs of one user, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]*Job, error) {
	const query = `
SELECT id, user_id, filename, status, progress, message, error, output_path, warnings, created_at, updated_at, completed_at
FROM report_jobs WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Delete removes a job record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM report_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpired returns jobs created before the cutoff, whatever their
// status, so the sweeper can remove them with their files. Age is
// measured from creation so that rows orphaned mid-render still expire.
func (s *Store) ListExpired(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	const query = `
SELECT id, user_id, filename, status, progress, message, error, output_path, warnings, created_at, updated_at, completed_at
FROM report_jobs WHERE created_at < ?`
	rows, err := s.db.QueryContext(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		j           Job
		status      string
		warnings    string
		completedAt sql.NullTime
	)
	err := row.Scan(&j.ID, &j.UserID, &j.Filename, &status, &j.Progress,
		&j.Message, &j.Error, &j.OutputPath, &warnings,
		&j.CreatedAt, &j.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &j.Warnings); err != nil {
			return nil, fmt.Errorf("corrupt warnings for job %s: %w", j.ID, err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}
