package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/leadscraper/internal/domain"
)

// BusinessRepository handles database operations for extracted businesses.
type BusinessRepository struct {
	db *sqlx.DB
}

// NewBusinessRepository creates a new business repository.
func NewBusinessRepository(db *sqlx.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// InsertBatch inserts one batch of businesses in a single statement and
// returns the number of rows inserted.
func (r *BusinessRepository) InsertBatch(ctx context.Context, businesses []*domain.Business) (int, error) {
	if len(businesses) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO businesses (
			id, area_id, scrape_job_id, name, address, phone, website, category,
			rating, review_count, latitude, longitude, raw_info, status,
			contact_status, created_at, updated_at
		) VALUES (
			:id, :area_id, :scrape_job_id, :name, :address, :phone, :website, :category,
			:rating, :review_count, :latitude, :longitude, :raw_info, :status,
			:contact_status, :created_at, :updated_at
		)
	`

	result, err := r.db.NamedExecContext(ctx, query, businesses)
	if err != nil {
		return 0, fmt.Errorf("failed to insert business batch: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(n), nil
}
