package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

func TestLedgerRepositoryIncrement(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET active_request_count = active_request_count + 1")).
		WithArgs("tech-1", models.MaxActiveRequests).
		WillReturnRows(sqlmock.NewRows([]string{"active_request_count", "can_receive_requests"}).AddRow(3, false))

	entry, err := repo.Increment(context.Background(), nil, "tech-1", models.MaxActiveRequests)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.ActiveRequestCount)
	assert.False(t, entry.CanReceiveRequests)
	assert.True(t, entry.Consistent())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryIncrementRefusedWhenFull(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND active_request_count < $2")).
		WithArgs("tech-1", models.MaxActiveRequests).
		WillReturnRows(sqlmock.NewRows([]string{"active_request_count", "can_receive_requests"}))

	entry, err := repo.Increment(context.Background(), nil, "tech-1", models.MaxActiveRequests)
	assert.Nil(t, entry)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDecrementInsideTransaction(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLedgerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("GREATEST(active_request_count - 1, 0)")).
		WithArgs("tech-1").
		WillReturnRows(sqlmock.NewRows([]string{"active_request_count", "can_receive_requests"}).AddRow(0, true))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	entry, err := repo.Decrement(context.Background(), tx, "tech-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, models.LedgerEntry{ActiveRequestCount: 0, CanReceiveRequests: true}, *entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDrift(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLedgerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN repair_requests r ON r.technician_id = p.id")).
		WithArgs(models.MaxActiveRequests).
		WillReturnRows(sqlmock.NewRows([]string{"id", "active_request_count", "can_receive_requests", "open_assignments"}).
			AddRow("tech-9", 2, false, 1))

	drift, err := repo.Drift(context.Background(), models.MaxActiveRequests)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, "tech-9", drift[0].TechnicianID)
	assert.Equal(t, 1, drift[0].OpenAssignments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
