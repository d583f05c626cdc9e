package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/leadscraper/internal/domain"
)

func sampleBusinesses(n int) []*domain.Business {
	now := time.Now()
	businesses := make([]*domain.Business, n)
	for i := range businesses {
		businesses[i] = &domain.Business{
			ID:            fmt.Sprintf("00000000-0000-0000-0000-%012d", i+1),
			AreaID:        7,
			ScrapeJobID:   42,
			Name:          "Business",
			RawInfo:       domain.JSONBMap{},
			Status:        domain.BusinessStatusNew,
			ContactStatus: domain.ContactStatusNotContacted,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	return businesses
}

func TestInsertBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBusinessRepository(db)

	mock.ExpectExec("INSERT INTO businesses").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.InsertBatch(context.Background(), sampleBusinesses(2))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatchEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewBusinessRepository(db)

	n, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
