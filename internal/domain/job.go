// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// Job statuses. A job moves pending -> running -> completed|failed and never
// leaves a terminal status.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IsTerminalStatus reports whether a job status is final.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// Job represents one unit of requested extraction work.
type Job struct {
	ID                    int64      `db:"id" json:"id"`
	AreaID                int64      `db:"area_id" json:"area_id"`
	Status                string     `db:"status" json:"status"`
	AssignedTo            *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	StartedAt             *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt           *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	BusinessesFound       int        `db:"businesses_found" json:"businesses_found"`
	ProcessingTimeSeconds float64    `db:"processing_time_seconds" json:"processing_time_seconds"`
	ErrorMessage          *string    `db:"error_message" json:"error_message,omitempty"`
	Logs                  JSONBMap   `db:"logs" json:"logs,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}
