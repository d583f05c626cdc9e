package job

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/logger"
	"github.com/jonesrussell/leadscraper/internal/persist"
	"github.com/jonesrussell/leadscraper/internal/webhook"
)

type stubStore struct {
	status    string
	statusErr error

	markRunningMatched bool
	markRunningErr     error
	markRunningCalls   int

	completedMatched bool
	completedErr     error
	completedCalls   int
	completedFound   int

	failedMatched bool
	failedErr     error
	failedCalls   int
	failedMessage string

	adminErr      error
	adminStatuses []string

	areaErr     error
	areaTouches int
}

func newStubStore() *stubStore {
	return &stubStore{
		status:             domain.JobStatusPending,
		markRunningMatched: true,
		completedMatched:   true,
		failedMatched:      true,
	}
}

func (s *stubStore) GetJobStatus(context.Context, int64) (string, error) {
	return s.status, s.statusErr
}

func (s *stubStore) MarkJobRunning(context.Context, int64, string) (bool, error) {
	s.markRunningCalls++
	return s.markRunningMatched, s.markRunningErr
}

func (s *stubStore) MarkJobCompleted(_ context.Context, _ int64, found int, _ float64, _ domain.JSONBMap) (bool, error) {
	s.completedCalls++
	s.completedFound = found
	return s.completedMatched, s.completedErr
}

func (s *stubStore) MarkJobFailed(_ context.Context, _ int64, msg string, _ float64) (bool, error) {
	s.failedCalls++
	s.failedMessage = msg
	return s.failedMatched, s.failedErr
}

func (s *stubStore) SetAdminStatus(_ context.Context, _ string, status string) (bool, error) {
	s.adminStatuses = append(s.adminStatuses, status)
	return true, s.adminErr
}

func (s *stubStore) TouchAreaLastScraped(context.Context, int64) (bool, error) {
	s.areaTouches++
	return true, s.areaErr
}

type stubRunner struct {
	result  domain.ExtractionResult
	calls   int
	lastReq domain.ScrapeRequest
}

func (r *stubRunner) Run(_ context.Context, req domain.ScrapeRequest) domain.ExtractionResult {
	r.calls++
	r.lastReq = req
	return r.result
}

type stubPersister struct {
	outcome   persist.Outcome
	calls     int
	lastLeads []domain.Lead
}

func (p *stubPersister) Store(_ context.Context, _, _ int64, leads []domain.Lead) persist.Outcome {
	p.calls++
	p.lastLeads = leads
	return p.outcome
}

type stubNotifier struct {
	payloads []webhook.CompletionPayload
}

func (n *stubNotifier) NotifyCompletion(_ context.Context, payload webhook.CompletionPayload) bool {
	n.payloads = append(n.payloads, payload)
	return true
}

func newTestOrchestrator(store *stubStore, runner *stubRunner, persister *stubPersister, notifier *stubNotifier) *Orchestrator {
	return NewOrchestrator(store, runner, persister, notifier, logger.NewNoop(), Options{
		AdminID:           "1",
		DefaultMaxResults: 50,
		MaxConcurrentJobs: 2,
	})
}

func makeLeads(n int) []domain.Lead {
	leads := make([]domain.Lead, n)
	for i := range leads {
		leads[i] = domain.Lead{Name: fmt.Sprintf("Business %d", i+1)}
	}
	return leads
}

func testRequest() domain.ScrapeRequest {
	return domain.ScrapeRequest{
		JobID:      42,
		AreaID:     7,
		AdminID:    "1",
		SearchTerm: "plumber",
		AreaName:   "Thunder Bay",
		MaxResults: 50,
	}
}

func TestProcessSuccessfulJob(t *testing.T) {
	store := newStubStore()
	runner := &stubRunner{result: domain.ExtractionResult{
		Success: true,
		Leads:   makeLeads(3),
		Method:  "list_scrape",
	}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 3, Inserted: 3}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, persister.calls)
	assert.Len(t, persister.lastLeads, 3)

	assert.Equal(t, 1, store.completedCalls)
	assert.Equal(t, 3, store.completedFound)
	assert.Zero(t, store.failedCalls)
	assert.Equal(t, 1, store.areaTouches)

	// busy during the run, released after
	assert.Equal(t, []string{domain.AdminStatusBusy, domain.AdminStatusActive}, store.adminStatuses)

	require.Len(t, notifier.payloads, 1)
	payload := notifier.payloads[0]
	assert.True(t, payload.Success)
	assert.Equal(t, int64(42), payload.JobID)
	assert.Equal(t, 3, payload.BusinessesFound)
	assert.Nil(t, payload.ErrorMessage)
}

func TestProcessExtractionTimeout(t *testing.T) {
	store := newStubStore()
	runner := &stubRunner{result: domain.ExtractionResult{
		Success:  false,
		TimedOut: true,
		Error:    "extraction timed out after 10m0s",
	}}
	persister := &stubPersister{}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Zero(t, persister.calls)
	assert.Zero(t, store.completedCalls)
	assert.Equal(t, 1, store.failedCalls)
	assert.Equal(t, "extraction timed out after 10m0s", store.failedMessage)
	assert.Zero(t, store.areaTouches)

	// admin still released after a failed run
	assert.Equal(t, domain.AdminStatusActive, store.adminStatuses[len(store.adminStatuses)-1])

	require.Len(t, notifier.payloads, 1)
	payload := notifier.payloads[0]
	assert.False(t, payload.Success)
	assert.Zero(t, payload.BusinessesFound)
	require.NotNil(t, payload.ErrorMessage)
	assert.Equal(t, "extraction timed out after 10m0s", *payload.ErrorMessage)
}

func TestProcessNoBusinessesFound(t *testing.T) {
	store := newStubStore()
	runner := &stubRunner{result: domain.ExtractionResult{Success: true}}
	persister := &stubPersister{}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	// an empty successful extraction is still a failed job
	assert.Zero(t, persister.calls)
	assert.Equal(t, 1, store.failedCalls)
	assert.Equal(t, "no businesses found", store.failedMessage)

	require.Len(t, notifier.payloads, 1)
	assert.False(t, notifier.payloads[0].Success)
}

func TestProcessStorageBelowThreshold(t *testing.T) {
	store := newStubStore()
	runner := &stubRunner{result: domain.ExtractionResult{
		Success: true,
		Leads:   makeLeads(4),
	}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 4, Inserted: 1}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Equal(t, 1, persister.calls)
	assert.Zero(t, store.completedCalls)
	assert.Equal(t, 1, store.failedCalls)
	assert.Equal(t, "business data storage failed", store.failedMessage)

	require.Len(t, notifier.payloads, 1)
	payload := notifier.payloads[0]
	assert.False(t, payload.Success)
	// the webhook still reports the scraped count; only the job row is zeroed
	assert.Equal(t, 4, payload.BusinessesFound)
}

func TestProcessTerminalJobIsNoOp(t *testing.T) {
	store := newStubStore()
	store.status = domain.JobStatusCompleted
	runner := &stubRunner{}
	persister := &stubPersister{}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Zero(t, runner.calls)
	assert.Zero(t, store.completedCalls)
	assert.Zero(t, store.failedCalls)
	assert.Empty(t, notifier.payloads)

	// the deferred release still fires
	assert.Equal(t, []string{domain.AdminStatusActive}, store.adminStatuses)
}

func TestProcessAlreadyRunningSkipsTransition(t *testing.T) {
	store := newStubStore()
	store.status = domain.JobStatusRunning
	runner := &stubRunner{result: domain.ExtractionResult{
		Success: true,
		Leads:   makeLeads(1),
	}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 1, Inserted: 1}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Zero(t, store.markRunningCalls)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, store.completedCalls)
}

func TestProcessStatusReadErrorContinues(t *testing.T) {
	store := newStubStore()
	store.statusErr = errors.New("connection refused")
	store.status = ""
	runner := &stubRunner{result: domain.ExtractionResult{
		Success: true,
		Leads:   makeLeads(1),
	}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 1, Inserted: 1}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, store.completedCalls)
}

func TestProcessCompletionWriteErrorDowngradesToFailed(t *testing.T) {
	store := newStubStore()
	store.completedErr = errors.New("disk full")
	runner := &stubRunner{result: domain.ExtractionResult{
		Success: true,
		Leads:   makeLeads(2),
	}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 2, Inserted: 2}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	assert.Equal(t, 1, store.completedCalls)
	assert.Equal(t, 1, store.failedCalls)

	require.Len(t, notifier.payloads, 1)
	assert.False(t, notifier.payloads[0].Success)
	assert.Equal(t, 2, notifier.payloads[0].BusinessesFound)

	// release runs regardless of finalize failures
	assert.Equal(t, domain.AdminStatusActive, store.adminStatuses[len(store.adminStatuses)-1])
}

func TestProcessIdempotentFinalize(t *testing.T) {
	store := newStubStore()
	store.completedMatched = false
	runner := &stubRunner{result: domain.ExtractionResult{
		Success: true,
		Leads:   makeLeads(1),
	}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 1, Inserted: 1}}
	notifier := &stubNotifier{}

	o := newTestOrchestrator(store, runner, persister, notifier)
	o.process(context.Background(), testRequest(), time.Now())

	// a skipped terminal write is success, not failure
	assert.Zero(t, store.failedCalls)
	require.Len(t, notifier.payloads, 1)
	assert.True(t, notifier.payloads[0].Success)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.ScrapeRequest)
		missing string
	}{
		{"missing job_id", func(r *domain.ScrapeRequest) { r.JobID = 0 }, "job_id"},
		{"missing area_id", func(r *domain.ScrapeRequest) { r.AreaID = 0 }, "area_id"},
		{"missing search_term", func(r *domain.ScrapeRequest) { r.SearchTerm = ""; r.Keyword = "" }, "search_term"},
		{"missing area_name", func(r *domain.ScrapeRequest) { r.AreaName = "" }, "area_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(newStubStore(), &stubRunner{}, &stubPersister{}, &stubNotifier{})

			req := testRequest()
			tt.mutate(&req)

			err := o.Submit(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestSubmitAcceptsKeywordAlias(t *testing.T) {
	runner := &stubRunner{result: domain.ExtractionResult{Success: true, Leads: makeLeads(1)}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 1, Inserted: 1}}
	o := newTestOrchestrator(newStubStore(), runner, persister, &stubNotifier{})

	req := testRequest()
	req.SearchTerm = ""
	req.Keyword = "electrician"

	require.NoError(t, o.Submit(req))
	o.Wait()

	assert.Equal(t, "electrician", runner.lastReq.Term())
}

func TestSubmitAppliesDefaults(t *testing.T) {
	runner := &stubRunner{result: domain.ExtractionResult{Success: true, Leads: makeLeads(1)}}
	persister := &stubPersister{outcome: persist.Outcome{Attempted: 1, Inserted: 1}}
	o := newTestOrchestrator(newStubStore(), runner, persister, &stubNotifier{})

	req := testRequest()
	req.MaxResults = 0
	req.AdminID = ""

	require.NoError(t, o.Submit(req))
	o.Wait()

	assert.Equal(t, 50, runner.lastReq.MaxResults)
	assert.Equal(t, "1", runner.lastReq.AdminID)
}

func TestSubmitRefusesWhenSaturated(t *testing.T) {
	o := newTestOrchestrator(newStubStore(), &stubRunner{}, &stubPersister{}, &stubNotifier{})

	// occupy every slot
	for i := 0; i < cap(o.slots); i++ {
		o.slots <- struct{}{}
	}

	err := o.Submit(testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusy)
}
