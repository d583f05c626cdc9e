package domain

import "time"

// Admin statuses. An admin is busy for at most one job at a time; this is
// enforced by orchestration discipline, not by a lock.
const (
	AdminStatusActive   = "active"
	AdminStatusBusy     = "busy"
	AdminStatusInactive = "inactive"
)

// Admin is a worker identity whose availability gates job execution.
// Admins are pre-provisioned; this service only flips their status.
type Admin struct {
	ID        string    `db:"id" json:"id"`
	Status    string    `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
