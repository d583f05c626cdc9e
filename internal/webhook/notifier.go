// Package webhook delivers job outcomes to the external workflow engine.
// Delivery is best-effort by design: the job's terminal status in the
// database is the durable record, the webhook is a convenience signal.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/jonesrussell/leadscraper/internal/config"
	"github.com/jonesrussell/leadscraper/internal/logger"
)

const (
	completionTimeout = 60 * time.Second
	testTimeout       = 20 * time.Second
)

// CompletionPayload is the outbound notification body.
type CompletionPayload struct {
	JobID           int64   `json:"job_id"`
	AreaID          int64   `json:"area_id"`
	AdminID         string  `json:"admin_id"`
	Keyword         string  `json:"keyword"`
	AreaName        string  `json:"area_name"`
	Success         bool    `json:"success"`
	BusinessesFound int     `json:"businesses_found"`
	ProcessingTime  float64 `json:"processing_time"`
	CompletedAt     string  `json:"completed_at"`
	ErrorMessage    *string `json:"error_message"`
}

// Notifier posts outcome messages to the configured endpoints. No retry, no
// queue, no backoff.
type Notifier struct {
	completionURL string
	testURL       string
	client        *http.Client
	log           logger.Interface
}

// New creates a Notifier. Empty URLs disable the corresponding webhook.
func New(cfg config.WebhookConfig, log logger.Interface) *Notifier {
	if cfg.CompletionURL == "" {
		log.Warn("Completion webhook URL not set - job completion notifications disabled")
	}
	if cfg.TestURL == "" {
		log.Warn("Test webhook URL not set - test webhook disabled")
	}

	return &Notifier{
		completionURL: cfg.CompletionURL,
		testURL:       cfg.TestURL,
		client:        &http.Client{},
		log:           log,
	}
}

// Configured reports whether both webhook endpoints are set.
func (n *Notifier) Configured() bool {
	return n.completionURL != "" && n.testURL != ""
}

// TestURL returns the test endpoint, for reporting back to callers.
func (n *Notifier) TestURL() string {
	return n.testURL
}

// NotifyCompletion sends the job outcome. Returns true only when the
// endpoint accepted the delivery; skipped or failed deliveries return false
// and are never retried.
func (n *Notifier) NotifyCompletion(ctx context.Context, payload CompletionPayload) bool {
	if n.completionURL == "" {
		n.log.Debug("Completion webhook not configured, skipping notification", "job_id", payload.JobID)
		return false
	}

	// Two-decimal seconds on the wire.
	payload.ProcessingTime = math.Round(payload.ProcessingTime*100) / 100

	status, err := n.post(ctx, n.completionURL, payload, completionTimeout)
	if err != nil {
		n.log.Error("Webhook notification failed",
			"job_id", payload.JobID,
			"error", err,
		)
		return false
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		n.log.Error("Webhook notification rejected",
			"job_id", payload.JobID,
			"status", status,
		)
		return false
	}

	n.log.Info("Webhook notification sent", "job_id", payload.JobID)
	return true
}

// Test posts a fixed payload to the test endpoint and reports whether it
// answered 200.
func (n *Notifier) Test(ctx context.Context) bool {
	if n.testURL == "" {
		n.log.Error("Test webhook URL not configured")
		return false
	}

	payload := map[string]any{
		"status_code": http.StatusOK,
		"message":     "Test successful",
	}

	status, err := n.post(ctx, n.testURL, payload, testTimeout)
	if err != nil {
		n.log.Error("Webhook connection test failed", "error", err)
		return false
	}

	if status != http.StatusOK {
		n.log.Error("Webhook test failed", "status", status)
		return false
	}

	n.log.Info("Webhook connection test successful")
	return true
}

// post sends one JSON POST with a per-call timeout and returns the response
// status code.
func (n *Notifier) post(ctx context.Context, url string, payload any, timeout time.Duration) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
