package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

var requestColumns = []string{"id", "user_id", "customer_name", "appliance_type", "model_name", "serial_number", "service_type", "description", "address", "address_id", "status", "repair_status", "technician_id", "scheduled_pickup_datetime", "completion_date", "created_at"}

func TestRepairRequestRepositoryCreate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO repair_requests").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	address := "12 MG Road, Bengaluru 560001"
	req := &models.RepairRequest{CustomerName: "Asha", ApplianceType: "washing_machine", Address: &address}
	require.NoError(t, repo.Create(context.Background(), req))

	assert.Equal(t, int64(42), req.ID)
	assert.Equal(t, created, req.CreatedAt)
	assert.Equal(t, models.StatusPendingAssignment, req.Status)
	assert.Equal(t, models.RepairRequestSubmitted, req.RepairStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryListPending(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	rows := sqlmock.NewRows(requestColumns).
		AddRow(int64(2), nil, "B", "fridge", nil, nil, nil, nil, "Flat 3, 400001", nil, "pending_acceptance", "request_submitted", nil, nil, nil, time.Now()).
		AddRow(int64(1), nil, "A", "tv", nil, nil, nil, nil, "Andheri 400 053", nil, "pending_assignment", "request_submitted", nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM repair_requests WHERE status = ANY($1) ORDER BY created_at DESC")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	requests, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, int64(2), requests[0].ID)
	assert.Equal(t, "Andheri 400 053", requests[1].AddressValue())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryListUnassignedWithoutLimit(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND technician_id IS NULL ORDER BY created_at ASC")).
		WithArgs(models.StatusPendingAssignment).
		WillReturnRows(sqlmock.NewRows(requestColumns))

	requests, err := repo.ListUnassigned(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryListUnassignedCapsResults(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC LIMIT $2")).
		WithArgs(models.StatusPendingAssignment, 25).
		WillReturnRows(sqlmock.NewRows(requestColumns))

	_, err := repo.ListUnassigned(context.Background(), 25)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryListAssignedToTechnicianKeepsAssignedOnly(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)
	since := time.Now().Add(-24 * time.Hour)

	rows := sqlmock.NewRows(requestColumns).
		AddRow(int64(4), nil, "D", "ac", nil, nil, nil, nil, "Colaba 400001", nil, "assigned", "request_accepted", "tech-1", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE technician_id = $1 AND status = $2 AND created_at >= $3 ORDER BY created_at DESC")).
		WithArgs("tech-1", models.StatusAssigned, since).
		WillReturnRows(rows)

	requests, err := repo.ListAssignedToTechnician(context.Background(), "tech-1", since)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusAssigned, requests[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryAssignIfUnassigned(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND technician_id IS NULL AND status = ANY($5)")).
		WithArgs(int64(7), "tech-1", models.StatusAssigned, models.RepairRequestAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AssignIfUnassigned(context.Background(), nil, 7, "tech-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryAssignIfUnassignedLosesRace(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectExec("UPDATE repair_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AssignIfUnassigned(context.Background(), nil, 7, "tech-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryUpdateTracking(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND technician_id = $2 AND repair_status = $3")).
		WithArgs(int64(7), "tech-1", models.RepairDiagnosisInspection, models.RepairQuotationShared, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTracking(context.Background(), nil, models.TrackingUpdate{
		RequestID:    7,
		TechnicianID: "tech-1",
		From:         models.RepairDiagnosisInspection,
		To:           models.RepairQuotationShared,
		Status:       models.StatusQuotationSubmitted,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryComplete(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET status = $3, repair_status = $4, completion_date = NOW()")).
		WithArgs(int64(7), "tech-1", models.StatusCompleted, models.RepairDelivered, "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), nil, models.Completion{RequestID: 7, TechnicianID: "tech-1", To: models.RepairDelivered})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairRequestRepositoryCompleteGuardsRepairStatus(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewRepairRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("repair_status::text = $5::text")).
		WithArgs(int64(7), "tech-1", models.StatusCompleted, models.RepairQuotationShared, string(models.RepairQuotationShared)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), nil, models.Completion{
		RequestID:    7,
		TechnicianID: "tech-1",
		From:         models.RepairQuotationShared,
		To:           models.RepairQuotationShared,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepositoryFindByID(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewAddressRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM addresses WHERE id = $1")).
		WithArgs("addr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "street_address", "city", "state", "pincode", "created_at"}).
			AddRow("addr-1", "user-1", "12 MG Road", "Bengaluru", "Karnataka", "560001", time.Now()))

	address, err := repo.FindByID(context.Background(), "addr-1")
	require.NoError(t, err)
	require.NotNil(t, address.Pincode)
	assert.Equal(t, "560001", *address.Pincode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
