// Package api exposes the HTTP request boundary: job submission, health
// reporting and webhook connectivity testing. Handlers translate transport
// concerns only; all lifecycle decisions live in the job package.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/job"
	"github.com/jonesrussell/leadscraper/internal/logger"
)

// JobSubmitter accepts validated scrape submissions for background
// processing.
type JobSubmitter interface {
	Submit(req domain.ScrapeRequest) error
}

// WebhookTester probes the outbound notification endpoints.
type WebhookTester interface {
	Test(ctx context.Context) bool
	Configured() bool
	TestURL() string
}

// Pinger reports database reachability. Satisfied by sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds the dependencies shared by the HTTP handlers.
type Handler struct {
	jobs     JobSubmitter
	webhooks WebhookTester
	db       Pinger
	log      logger.Interface

	service string
	version string
	adminID string
}

// NewHandler creates a Handler.
func NewHandler(
	jobs JobSubmitter,
	webhooks WebhookTester,
	db Pinger,
	log logger.Interface,
	service, version, adminID string,
) *Handler {
	return &Handler{
		jobs:     jobs,
		webhooks: webhooks,
		db:       db,
		log:      log,
		service:  service,
		version:  version,
		adminID:  adminID,
	}
}

// Health reports liveness plus dependency reachability. The endpoint always
// answers 200; degraded dependencies show up in the body, not the status
// code, so orchestration keeps routing while operators investigate.
func (h *Handler) Health(c *gin.Context) {
	dbConnected := true
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		dbConnected = false
		h.log.Warn("Health check: database unreachable", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "healthy",
		"service":            h.service,
		"version":            h.version,
		"timestamp":          time.Now().Format(time.RFC3339),
		"database_connected": dbConnected,
		"webhook_configured": h.webhooks.Configured(),
		"admin_id":           h.adminID,
	})
}

// ScrapeSingle accepts one job submission and acknowledges immediately. The
// real outcome arrives later via the job row and the completion webhook.
func (h *Handler) ScrapeSingle(c *gin.Context) {
	var req domain.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid JSON payload",
		})
		return
	}

	if err := h.jobs.Submit(req); err != nil {
		switch {
		case errors.Is(err, job.ErrBusy):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		}
		return
	}

	h.log.Info("Job submission accepted", "job_id", req.JobID, "area_id", req.AreaID)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"job_id":    req.JobID,
		"message":   "Job processing started",
		"admin_id":  h.adminID,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// TestWebhook fires a probe at the test endpoint and reports the result.
func (h *Handler) TestWebhook(c *gin.Context) {
	result := "failed"
	if h.webhooks.Test(c.Request.Context()) {
		result = "success"
	}

	c.JSON(http.StatusOK, gin.H{
		"webhook_test": result,
		"webhook_url":  h.webhooks.TestURL(),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}
