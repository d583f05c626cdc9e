// Package job implements the scrape-job lifecycle: admission, asynchronous
// extraction, result persistence, terminal-state finalization and outcome
// notification.
package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/logger"
	"github.com/jonesrussell/leadscraper/internal/persist"
	"github.com/jonesrussell/leadscraper/internal/webhook"
)

// Submission errors surfaced synchronously to the caller.
var (
	// ErrValidation indicates missing required submission fields.
	ErrValidation = errors.New("invalid scrape request")
	// ErrBusy indicates all job slots are occupied.
	ErrBusy = errors.New("all job slots busy")
)

const storageFailedMessage = "business data storage failed"

// StateStore is the orchestrator's view of the admin/job/area row store.
// Every mutation is a single-row conditional update; the matched flag
// distinguishes "write applied" from "already in desired state".
type StateStore interface {
	GetJobStatus(ctx context.Context, id int64) (string, error)
	MarkJobRunning(ctx context.Context, id int64, adminID string) (bool, error)
	MarkJobCompleted(ctx context.Context, id int64, businessesFound int, processingSeconds float64, logs domain.JSONBMap) (bool, error)
	MarkJobFailed(ctx context.Context, id int64, errorMessage string, processingSeconds float64) (bool, error)
	SetAdminStatus(ctx context.Context, id, status string) (bool, error)
	TouchAreaLastScraped(ctx context.Context, id int64) (bool, error)
}

// ExtractionRunner executes one extraction under a deadline. It never
// returns an error; failures arrive as result values.
type ExtractionRunner interface {
	Run(ctx context.Context, req domain.ScrapeRequest) domain.ExtractionResult
}

// ResultPersister stores extracted leads with partial-failure tolerance.
type ResultPersister interface {
	Store(ctx context.Context, jobID, areaID int64, leads []domain.Lead) persist.Outcome
}

// CompletionNotifier delivers the job outcome, best-effort.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, payload webhook.CompletionPayload) bool
}

// Orchestrator coordinates the job pipeline:
// Admit -> Execute -> Persist -> Finalize -> Notify -> Release.
// Release always runs, so admin availability is never lost to a failed job.
type Orchestrator struct {
	store     StateStore
	runner    ExtractionRunner
	persister ResultPersister
	notifier  CompletionNotifier
	log       logger.Interface

	adminID           string
	defaultMaxResults int

	// slots caps concurrent pipelines. Acquisition never blocks: a saturated
	// server refuses new jobs instead of queueing them.
	slots chan struct{}
	wg    sync.WaitGroup
}

// Options configures the orchestrator.
type Options struct {
	AdminID           string
	DefaultMaxResults int
	MaxConcurrentJobs int
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	store StateStore,
	runner ExtractionRunner,
	persister ResultPersister,
	notifier CompletionNotifier,
	log logger.Interface,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		store:             store,
		runner:            runner,
		persister:         persister,
		notifier:          notifier,
		log:               log,
		adminID:           opts.AdminID,
		defaultMaxResults: opts.DefaultMaxResults,
		slots:             make(chan struct{}, opts.MaxConcurrentJobs),
	}
}

// Submit validates the request and launches the pipeline off the request
// path. It returns immediately: the caller learns the real outcome from the
// job row or the completion webhook, never from this call.
func (o *Orchestrator) Submit(req domain.ScrapeRequest) error {
	if err := validate(req); err != nil {
		return err
	}

	if req.MaxResults <= 0 {
		req.MaxResults = o.defaultMaxResults
	}
	if req.AdminID == "" {
		req.AdminID = o.adminID
	}

	select {
	case o.slots <- struct{}{}:
	default:
		return fmt.Errorf("%w: %d jobs in flight", ErrBusy, cap(o.slots))
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() { <-o.slots }()
		o.process(context.Background(), req, time.Now())
	}()

	return nil
}

// Wait blocks until all in-flight pipelines finish. Used during shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// validate checks the required submission fields.
func validate(req domain.ScrapeRequest) error {
	var missing []string
	if req.JobID == 0 {
		missing = append(missing, "job_id")
	}
	if req.AreaID == 0 {
		missing = append(missing, "area_id")
	}
	if req.Term() == "" {
		missing = append(missing, "search_term")
	}
	if req.AreaName == "" {
		missing = append(missing, "area_name")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// process runs the full pipeline for one admitted job.
func (o *Orchestrator) process(ctx context.Context, req domain.ScrapeRequest, start time.Time) {
	log := o.log.With("job_id", req.JobID, "area_id", req.AreaID)

	// Release is unconditional: whatever happens above, the admin goes back
	// to active.
	defer func() {
		if _, err := o.store.SetAdminStatus(ctx, o.adminID, domain.AdminStatusActive); err != nil {
			log.Error("Failed to release admin", "admin_id", o.adminID, "error", err)
		}
	}()

	if !o.admit(ctx, req, log) {
		return
	}

	log.Info("Processing job", "search_term", req.Term(), "area_name", req.AreaName)

	result := o.runner.Run(ctx, req)

	// The webhook always reports the scraped count; only the job row is
	// zeroed on failure.
	scraped := 0
	if result.Success {
		scraped = len(result.Leads)
	}

	success, found, errMsg := o.evaluate(ctx, req, result, log)

	elapsed := time.Since(start).Seconds()

	if success {
		if err := o.finalizeCompleted(ctx, req, found, elapsed, result.Method, log); err != nil {
			success = false
			found = 0
			errMsg = err.Error()
		}
	}
	if !success {
		o.finalizeFailed(ctx, req.JobID, errMsg, elapsed, log)
	}

	o.notify(ctx, req, success, scraped, elapsed, errMsg)
}

// admit reads the job's current status and transitions admin/job state.
// Terminal jobs are an idempotent no-op; a job already running still marks
// the admin busy (defensive duplicate-submission handling); otherwise the
// pending->running transition is attempted, conditioned on the job still
// being pending.
func (o *Orchestrator) admit(ctx context.Context, req domain.ScrapeRequest, log logger.Interface) bool {
	status, err := o.store.GetJobStatus(ctx, req.JobID)
	if err != nil {
		log.Warn("Failed to read job status, continuing anyway", "error", err)
	}

	if domain.IsTerminalStatus(status) {
		log.Warn("Job already in terminal state, skipping", "status", status)
		return false
	}

	if _, busyErr := o.store.SetAdminStatus(ctx, o.adminID, domain.AdminStatusBusy); busyErr != nil {
		log.Warn("Failed to mark admin busy, continuing anyway", "admin_id", o.adminID, "error", busyErr)
	}

	if status == domain.JobStatusRunning {
		log.Info("Job already running, skipping status transition")
		return true
	}

	matched, runErr := o.store.MarkJobRunning(ctx, req.JobID, o.adminID)
	if runErr != nil {
		log.Warn("Failed to mark job running, continuing anyway", "error", runErr)
	} else if !matched {
		// Lost the pending guard to a concurrent submission or an external
		// transition. Benign: the extraction still runs.
		log.Info("Job not pending, running transition skipped")
	}

	return true
}

// evaluate turns the extraction result plus persistence outcome into the
// final success flag, count and error message.
func (o *Orchestrator) evaluate(
	ctx context.Context,
	req domain.ScrapeRequest,
	result domain.ExtractionResult,
	log logger.Interface,
) (success bool, found int, errMsg string) {
	if !result.Success {
		errMsg = result.Error
		if errMsg == "" {
			errMsg = "extraction failed"
		}
		return false, 0, errMsg
	}

	if len(result.Leads) == 0 {
		return false, 0, "no businesses found"
	}

	outcome := o.persister.Store(ctx, req.JobID, req.AreaID, result.Leads)
	if !outcome.Succeeded() {
		log.Error("Business storage below success threshold",
			"inserted", outcome.Inserted,
			"attempted", outcome.Attempted,
		)
		return false, 0, storageFailedMessage
	}

	return true, len(result.Leads), ""
}

// finalizeCompleted writes the completed terminal state and stamps the area.
// A skipped write because the job is already terminal counts as success.
func (o *Orchestrator) finalizeCompleted(
	ctx context.Context,
	req domain.ScrapeRequest,
	found int,
	elapsed float64,
	method string,
	log logger.Interface,
) error {
	logs := domain.JSONBMap{
		"extraction_method": method,
		"timestamp":         time.Now().Format(time.RFC3339),
	}

	matched, err := o.store.MarkJobCompleted(ctx, req.JobID, found, elapsed, logs)
	if err != nil {
		log.Error("Failed to record job completion", "error", err)
		return fmt.Errorf("failed to record job completion: %w", err)
	}
	if !matched {
		log.Info("Job already finalized, completion write skipped")
	}

	if _, areaErr := o.store.TouchAreaLastScraped(ctx, req.AreaID); areaErr != nil {
		log.Error("Failed to update area last scraped", "error", areaErr)
	}

	log.Info("Job completed", "businesses_found", found, "processing_time_seconds", elapsed)
	return nil
}

// finalizeFailed writes the failed terminal state. A skipped write because
// the job is already terminal is treated as success, not an error.
func (o *Orchestrator) finalizeFailed(ctx context.Context, jobID int64, errMsg string, elapsed float64, log logger.Interface) {
	matched, err := o.store.MarkJobFailed(ctx, jobID, errMsg, elapsed)
	if err != nil {
		log.Error("Failed to record job failure", "error", err)
		return
	}
	if !matched {
		log.Info("Job already finalized, failure write skipped")
	}
	log.Warn("Job failed", "error", errMsg)
}

// notify sends the completion webhook. Its outcome never affects job state.
func (o *Orchestrator) notify(
	ctx context.Context,
	req domain.ScrapeRequest,
	success bool,
	found int,
	elapsed float64,
	errMsg string,
) {
	var errPtr *string
	if !success {
		errPtr = &errMsg
	}

	o.notifier.NotifyCompletion(ctx, webhook.CompletionPayload{
		JobID:           req.JobID,
		AreaID:          req.AreaID,
		AdminID:         req.AdminID,
		Keyword:         req.Term(),
		AreaName:        req.AreaName,
		Success:         success,
		BusinessesFound: found,
		ProcessingTime:  elapsed,
		CompletedAt:     time.Now().Format(time.RFC3339),
		ErrorMessage:    errPtr,
	})
}
