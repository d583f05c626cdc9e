package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscraper/internal/domain"
)

// ErrJobNotFound is returned when a job id has no row.
var ErrJobNotFound = errors.New("job not found")

// JobRepository handles database operations for scrape jobs. All state
// transitions are single-row conditional updates; the returned matched flag
// distinguishes "write applied" from "guard did not match", which callers
// treat as a benign no-op.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// GetStatus retrieves the current status of a job.
func (r *JobRepository) GetStatus(ctx context.Context, id int64) (string, error) {
	var status string
	query := `SELECT status FROM scrape_jobs WHERE id = $1`

	err := r.db.GetContext(ctx, &status, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %d", ErrJobNotFound, id)
		}
		return "", fmt.Errorf("failed to get job status: %w", err)
	}

	return status, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	var job domain.Job
	query := `
		SELECT id, area_id, status, assigned_to, started_at, completed_at,
		       businesses_found, processing_time_seconds, error_message, logs,
		       created_at, updated_at
		FROM scrape_jobs
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List retrieves the most recently updated jobs, optionally filtered by
// status.
func (r *JobRepository) List(ctx context.Context, status string, limit int) ([]*domain.Job, error) {
	var jobs []*domain.Job
	var query string
	var args []any

	if status != "" {
		query = `
			SELECT id, area_id, status, assigned_to, started_at, completed_at,
			       businesses_found, processing_time_seconds, error_message, logs,
			       created_at, updated_at
			FROM scrape_jobs
			WHERE status = $1
			ORDER BY updated_at DESC
			LIMIT $2
		`
		args = []any{status, limit}
	} else {
		query = `
			SELECT id, area_id, status, assigned_to, started_at, completed_at,
			       businesses_found, processing_time_seconds, error_message, logs,
			       created_at, updated_at
			FROM scrape_jobs
			ORDER BY updated_at DESC
			LIMIT $1
		`
		args = []any{limit}
	}

	err := r.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	if jobs == nil {
		jobs = []*domain.Job{}
	}

	return jobs, nil
}

// MarkRunning transitions a job from pending to running and records the
// assigned admin and start time. The update is conditioned on the job still
// being pending; matched=false means another submission won the transition
// or the job had already advanced.
func (r *JobRepository) MarkRunning(ctx context.Context, id int64, adminID string) (bool, error) {
	query := `
		UPDATE scrape_jobs
		SET status = $2, assigned_to = $3, started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	matched, err := execMatched(r.db.ExecContext(ctx, query, id, domain.JobStatusRunning, adminID, domain.JobStatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to mark job running: %w", err)
	}

	return matched, nil
}

// MarkCompleted writes the completed terminal state with counts and timing.
// Conditioned on the job not already being terminal.
func (r *JobRepository) MarkCompleted(
	ctx context.Context,
	id int64,
	businessesFound int,
	processingSeconds float64,
	logs domain.JSONBMap,
) (bool, error) {
	query := `
		UPDATE scrape_jobs
		SET status = $2, businesses_found = $3, processing_time_seconds = $4,
		    error_message = NULL, logs = $5, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($6, $7)
	`

	matched, err := execMatched(r.db.ExecContext(
		ctx, query, id,
		domain.JobStatusCompleted, businessesFound, processingSeconds, logs,
		domain.JobStatusCompleted, domain.JobStatusFailed,
	))
	if err != nil {
		return false, fmt.Errorf("failed to mark job completed: %w", err)
	}

	return matched, nil
}

// MarkFailed writes the failed terminal state with the error message.
// Conditioned on the job not already being terminal.
func (r *JobRepository) MarkFailed(
	ctx context.Context,
	id int64,
	errorMessage string,
	processingSeconds float64,
) (bool, error) {
	query := `
		UPDATE scrape_jobs
		SET status = $2, error_message = $3, businesses_found = 0,
		    processing_time_seconds = $4, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($5, $6)
	`

	matched, err := execMatched(r.db.ExecContext(
		ctx, query, id,
		domain.JobStatusFailed, errorMessage, processingSeconds,
		domain.JobStatusCompleted, domain.JobStatusFailed,
	))
	if err != nil {
		return false, fmt.Errorf("failed to mark job failed: %w", err)
	}

	return matched, nil
}

// FailStaleRunning fails every job that has been running since before the
// cutoff. Used by the janitor to recover rows abandoned by a crashed worker.
func (r *JobRepository) FailStaleRunning(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	query := `
		UPDATE scrape_jobs
		SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
		WHERE status = $4 AND started_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff, domain.JobStatusFailed, reason, domain.JobStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale jobs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n, nil
}
