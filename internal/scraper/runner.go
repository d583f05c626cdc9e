// Package scraper wraps the extraction operation with an isolated execution
// context and a hard wall-clock deadline.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/logger"
)

// Extractor performs one extraction run. Implementations are constructed
// fresh per run and must not share state with prior or concurrent runs.
type Extractor interface {
	Extract(ctx context.Context, req domain.ScrapeRequest) ([]domain.Lead, string, error)
}

// Factory builds a fresh extractor for each run, so one job's failure or
// resource leak cannot corrupt another's.
type Factory func() Extractor

// Runner executes extractions under a deadline. It never returns an error to
// the caller: timeouts, extractor errors and panics all become failed
// ExtractionResult values.
type Runner struct {
	newExtractor Factory
	timeout      time.Duration
	log          logger.Interface
}

// NewRunner creates a Runner.
func NewRunner(factory Factory, timeout time.Duration, log logger.Interface) *Runner {
	return &Runner{
		newExtractor: factory,
		timeout:      timeout,
		log:          log,
	}
}

type extractOutcome struct {
	leads  []domain.Lead
	method string
	err    error
}

// Run performs one isolated extraction with a hard deadline.
func (r *Runner) Run(ctx context.Context, req domain.ScrapeRequest) domain.ExtractionResult {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan extractOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- extractOutcome{err: fmt.Errorf("extractor panic: %v", rec)}
			}
		}()

		extractor := r.newExtractor()
		leads, method, err := extractor.Extract(runCtx, req)
		done <- extractOutcome{leads: leads, method: method, err: err}
	}()

	select {
	case <-runCtx.Done():
		elapsed := time.Since(start)

		// A cancelled parent context (shutdown) is not a timeout.
		if !errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			r.log.Warn("Extraction cancelled", "job_id", req.JobID)
			return domain.ExtractionResult{
				Success:  false,
				Error:    "extraction cancelled",
				Duration: elapsed,
			}
		}

		r.log.Warn("Extraction timed out",
			"job_id", req.JobID,
			"timeout", r.timeout,
		)
		return domain.ExtractionResult{
			Success:  false,
			TimedOut: true,
			Error:    fmt.Sprintf("extraction timed out after %s", r.timeout),
			Duration: elapsed,
		}
	case outcome := <-done:
		elapsed := time.Since(start)
		if outcome.err != nil {
			r.log.Error("Extraction failed",
				"job_id", req.JobID,
				"error", outcome.err,
			)
			return domain.ExtractionResult{
				Success:  false,
				Error:    outcome.err.Error(),
				Duration: elapsed,
			}
		}

		return domain.ExtractionResult{
			Success:  true,
			Leads:    outcome.leads,
			Method:   outcome.method,
			Duration: elapsed,
		}
	}
}
