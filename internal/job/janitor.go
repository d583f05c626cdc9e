package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/leadscraper/internal/logger"
)

const staleJobReason = "abandoned by worker"

// StaleJobFailer fails running jobs whose start time predates the cutoff.
type StaleJobFailer interface {
	FailStaleRunningJobs(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// Janitor periodically fails jobs stuck in the running state. A job survives
// a process crash as a running row nobody owns; the sweep turns those into
// failed rows so the workflow engine sees a terminal outcome.
type Janitor struct {
	store      StaleJobFailer
	staleAfter time.Duration
	cron       *cron.Cron
	log        logger.Interface
}

// NewJanitor creates a Janitor. staleAfter should comfortably exceed the
// extraction deadline so a live job is never swept mid-run.
func NewJanitor(store StaleJobFailer, staleAfter time.Duration, log logger.Interface) *Janitor {
	return &Janitor{
		store:      store,
		staleAfter: staleAfter,
		cron:       cron.New(),
		log:        log,
	}
}

// Start schedules the sweep and runs one immediately.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc("@every 1m", func() {
		j.Sweep(ctx)
	}); err != nil {
		return err
	}

	j.cron.Start()
	j.log.Info("Stale job janitor started", "stale_after", j.staleAfter)

	j.Sweep(ctx)
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.log.Info("Stale job janitor stopped")
}

// Sweep fails all running jobs older than the staleness cutoff.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.staleAfter)

	count, err := j.store.FailStaleRunningJobs(ctx, cutoff, staleJobReason)
	if err != nil {
		j.log.Error("Stale job sweep failed", "error", err)
		return
	}

	if count > 0 {
		j.log.Warn("Failed stale running jobs", "count", count, "cutoff", cutoff)
	}
}
