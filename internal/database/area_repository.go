package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AreaRepository handles database operations for areas.
type AreaRepository struct {
	db *sqlx.DB
}

// NewAreaRepository creates a new area repository.
func NewAreaRepository(db *sqlx.DB) *AreaRepository {
	return &AreaRepository{db: db}
}

// TouchLastScraped stamps the area's last_scraped_at. Called only on
// successful job completion.
func (r *AreaRepository) TouchLastScraped(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE areas SET last_scraped_at = NOW(), updated_at = NOW() WHERE id = $1`

	matched, err := execMatched(r.db.ExecContext(ctx, query, id))
	if err != nil {
		return false, fmt.Errorf("failed to touch area last_scraped_at: %w", err)
	}

	return matched, nil
}
