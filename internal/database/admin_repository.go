package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscraper/internal/domain"
)

// ErrAdminNotFound is returned when an admin id has no row.
var ErrAdminNotFound = errors.New("admin not found")

// AdminRepository handles database operations for admin workers.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new admin repository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// GetByID retrieves an admin by its ID.
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	var admin domain.Admin
	query := `SELECT id, status, updated_at FROM admins WHERE id = $1`

	err := r.db.GetContext(ctx, &admin, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAdminNotFound, id)
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return &admin, nil
}

// SetStatus updates the admin's availability status. matched=false means the
// admin row does not exist.
func (r *AdminRepository) SetStatus(ctx context.Context, id, status string) (bool, error) {
	query := `UPDATE admins SET status = $2, updated_at = NOW() WHERE id = $1`

	matched, err := execMatched(r.db.ExecContext(ctx, query, id, status))
	if err != nil {
		return false, fmt.Errorf("failed to set admin status: %w", err)
	}

	return matched, nil
}
