package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscraper/internal/domain"
)

// Store bundles the repositories into the single state-store surface the
// orchestrator works against. No multi-row transactions: every guard is a
// single-row conditional update, and every write stamps updated_at.
type Store struct {
	Jobs       *JobRepository
	Admins     *AdminRepository
	Areas      *AreaRepository
	Businesses *BusinessRepository
}

// NewStore creates a Store over the given connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		Jobs:       NewJobRepository(db),
		Admins:     NewAdminRepository(db),
		Areas:      NewAreaRepository(db),
		Businesses: NewBusinessRepository(db),
	}
}

// GetJobStatus returns the job's current status.
func (s *Store) GetJobStatus(ctx context.Context, id int64) (string, error) {
	return s.Jobs.GetStatus(ctx, id)
}

// MarkJobRunning applies the pending->running transition.
func (s *Store) MarkJobRunning(ctx context.Context, id int64, adminID string) (bool, error) {
	return s.Jobs.MarkRunning(ctx, id, adminID)
}

// MarkJobCompleted writes the completed terminal state.
func (s *Store) MarkJobCompleted(
	ctx context.Context,
	id int64,
	businessesFound int,
	processingSeconds float64,
	logs domain.JSONBMap,
) (bool, error) {
	return s.Jobs.MarkCompleted(ctx, id, businessesFound, processingSeconds, logs)
}

// MarkJobFailed writes the failed terminal state.
func (s *Store) MarkJobFailed(ctx context.Context, id int64, errorMessage string, processingSeconds float64) (bool, error) {
	return s.Jobs.MarkFailed(ctx, id, errorMessage, processingSeconds)
}

// SetAdminStatus updates the admin's availability.
func (s *Store) SetAdminStatus(ctx context.Context, id, status string) (bool, error) {
	return s.Admins.SetStatus(ctx, id, status)
}

// TouchAreaLastScraped stamps the area's last-scraped time.
func (s *Store) TouchAreaLastScraped(ctx context.Context, id int64) (bool, error) {
	return s.Areas.TouchLastScraped(ctx, id)
}

// FailStaleRunningJobs fails jobs stuck in running since before the cutoff.
func (s *Store) FailStaleRunningJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	return s.Jobs.FailStaleRunning(ctx, cutoff, reason)
}
