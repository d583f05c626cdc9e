package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchLastScraped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAreaRepository(db)

	mock.ExpectExec("UPDATE areas SET last_scraped_at").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	matched, err := repo.TouchLastScraped(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTouchLastScrapedMissingArea(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAreaRepository(db)

	mock.ExpectExec("UPDATE areas SET last_scraped_at").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	matched, err := repo.TouchLastScraped(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, matched)
}
