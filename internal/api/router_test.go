package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/job"
	"github.com/jonesrussell/leadscraper/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSubmitter struct {
	err     error
	calls   int
	lastReq domain.ScrapeRequest
}

func (f *fakeSubmitter) Submit(req domain.ScrapeRequest) error {
	f.calls++
	f.lastReq = req
	return f.err
}

type fakeWebhooks struct {
	testResult bool
	configured bool
	url        string
}

func (f *fakeWebhooks) Test(context.Context) bool { return f.testResult }
func (f *fakeWebhooks) Configured() bool          { return f.configured }
func (f *fakeWebhooks) TestURL() string           { return f.url }

type fakePinger struct {
	err error
}

func (f *fakePinger) PingContext(context.Context) error { return f.err }

type testDeps struct {
	submitter *fakeSubmitter
	webhooks  *fakeWebhooks
	pinger    *fakePinger
}

func newTestRouter() (*gin.Engine, *testDeps) {
	deps := &testDeps{
		submitter: &fakeSubmitter{},
		webhooks:  &fakeWebhooks{testResult: true, configured: true, url: "http://hooks.example/test"},
		pinger:    &fakePinger{},
	}

	h := NewHandler(
		deps.submitter,
		deps.webhooks,
		deps.pinger,
		logger.NewNoop(),
		"leadscraper", "1.0.0", "1",
	)
	return SetupRouter(h, logger.NewNoop(), false), deps
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func validSubmission() map[string]any {
	return map[string]any{
		"job_id":      42,
		"area_id":     7,
		"search_term": "plumber",
		"area_name":   "Thunder Bay",
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "leadscraper", body["service"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, "1", body["admin_id"])
	assert.Equal(t, true, body["database_connected"])
	assert.Equal(t, true, body["webhook_configured"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealthReportsDatabaseDown(t *testing.T) {
	router, deps := newTestRouter()
	deps.pinger.err = errors.New("connection refused")

	w := doJSON(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["database_connected"])
}

func TestScrapeSingleAccepted(t *testing.T) {
	router, deps := newTestRouter()

	w := doJSON(router, http.MethodPost, "/scrape-single", validSubmission())
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(42), body["job_id"])
	assert.Equal(t, "Job processing started", body["message"])
	assert.Equal(t, "1", body["admin_id"])
	assert.NotEmpty(t, body["timestamp"])

	assert.Equal(t, 1, deps.submitter.calls)
	assert.Equal(t, int64(42), deps.submitter.lastReq.JobID)
	assert.Equal(t, "plumber", deps.submitter.lastReq.SearchTerm)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "close", w.Header().Get("Connection"))
}

func TestScrapeSingleInvalidJSON(t *testing.T) {
	router, deps := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/scrape-single", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid JSON payload", body["error"])
	assert.Zero(t, deps.submitter.calls)
}

func TestScrapeSingleValidationError(t *testing.T) {
	router, deps := newTestRouter()
	deps.submitter.err = fmt.Errorf("%w: missing required fields: job_id", job.ErrValidation)

	w := doJSON(router, http.MethodPost, "/scrape-single", map[string]any{"area_id": 7})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "job_id")
}

func TestScrapeSingleBusy(t *testing.T) {
	router, deps := newTestRouter()
	deps.submitter.err = fmt.Errorf("%w: 4 jobs in flight", job.ErrBusy)

	w := doJSON(router, http.MethodPost, "/scrape-single", validSubmission())
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "busy")
}

func TestTestWebhookSuccess(t *testing.T) {
	router, _ := newTestRouter()

	w := doJSON(router, http.MethodPost, "/test-webhook", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "success", body["webhook_test"])
	assert.Equal(t, "http://hooks.example/test", body["webhook_url"])
}

func TestTestWebhookFailed(t *testing.T) {
	router, deps := newTestRouter()
	deps.webhooks.testResult = false

	w := doJSON(router, http.MethodPost, "/test-webhook", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "failed", body["webhook_test"])
}

func TestOptionsPreflight(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/scrape-single", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "POST, GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter()

	w := doJSON(router, http.MethodGet, "/scrape-single", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter()

	w := doJSON(router, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Endpoint not found", body["error"])
}
