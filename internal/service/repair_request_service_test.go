package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repairjunction/repairjunction-api/internal/dto"
	"github.com/repairjunction/repairjunction-api/internal/models"
	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

const customerID = "6f1d2c3b-4a59-4e8f-9b7a-1c2d3e4f5a6b"

func newRequestServiceFixture(t *testing.T, requests []models.RepairRequest, addresses map[string]*models.Address, technicians ...models.TechnicianProfile) (*RepairRequestService, *assignmentFixture) {
	f := newAssignmentFixture(t, requests, technicians...)
	svc := NewRepairRequestService(f.requests, addressReaderStub{addresses: addresses}, NewLocationResolver(addressReaderStub{addresses: addresses}, nil, nil), f.svc, f.feeds, nil, nil)
	return svc, f
}

func TestRepairRequestServiceCreateAssignsNearbyTechnician(t *testing.T) {
	svc, f := newRequestServiceFixture(t, nil, nil, technician("tech-1", "400053", 0))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := svc.Create(context.Background(), customerID, dto.CreateRepairRequest{
		CustomerName:  "Asha",
		ApplianceType: "refrigerator",
		Address:       strPtr("B-12, Lokhandwala, Andheri West 400 053"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Assignment.Success)
	assert.True(t, resp.Assignment.Assigned)
	assert.Equal(t, models.StatusAssigned, resp.Request.Status)
	assert.Equal(t, models.RepairRequestAccepted, resp.Request.RepairStatus)
	assert.True(t, resp.Request.AssignedTo("tech-1"))

	stored := f.requests.requests[resp.Request.ID]
	assert.True(t, stored.AssignedTo("tech-1"))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRepairRequestServiceCreateLeavesRequestPending(t *testing.T) {
	svc, f := newRequestServiceFixture(t, nil, nil)

	resp, err := svc.Create(context.Background(), customerID, dto.CreateRepairRequest{
		CustomerName:  "Ravi",
		ApplianceType: "tv",
		Address:       strPtr("123 Main St, Springfield"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Assignment.Success)
	assert.False(t, resp.Assignment.Assigned)
	assert.Equal(t, models.StatusPendingAssignment, resp.Request.Status)
	assert.Nil(t, resp.Request.TechnicianID)
	assert.Len(t, f.requests.created, 1)
}

func TestRepairRequestServiceCreateSurvivesAssignmentFailure(t *testing.T) {
	svc, f := newRequestServiceFixture(t, nil, nil, technician("tech-1", "400001", 0))
	f.ledger.err = assert.AnError

	resp, err := svc.Create(context.Background(), customerID, dto.CreateRepairRequest{
		CustomerName:  "Meera",
		ApplianceType: "microwave",
		Address:       strPtr("Colaba 400001"),
	})
	require.NoError(t, err)
	assert.False(t, resp.Assignment.Success)
	assert.Equal(t, models.StatusPendingAssignment, resp.Request.Status)
}

func TestRepairRequestServiceCreateWithSavedAddress(t *testing.T) {
	addresses := map[string]*models.Address{
		"0d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70": {
			ID:            "0d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70",
			UserID:        customerID,
			StreetAddress: strPtr("12 MG Road"),
			City:          strPtr("Bengaluru"),
			State:         strPtr("Karnataka"),
			Pincode:       strPtr("560001"),
		},
		"1d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70": {ID: "1d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70", UserID: "someone-else"},
	}
	svc, f := newRequestServiceFixture(t, nil, addresses, technician("tech-1", "560001", 0))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := svc.Create(context.Background(), customerID, dto.CreateRepairRequest{
		CustomerName:  "Asha",
		ApplianceType: "ac",
		AddressID:     strPtr("0d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12 MG Road, Bengaluru, Karnataka, 560001", resp.Request.AddressValue())
	assert.True(t, resp.Assignment.Assigned)

	_, err = svc.Create(context.Background(), customerID, dto.CreateRepairRequest{
		CustomerName:  "Asha",
		ApplianceType: "ac",
		AddressID:     strPtr("1d9e8f7a-6b5c-4d3e-8f1a-2b3c4d5e6f70"),
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRepairRequestServiceCreateValidation(t *testing.T) {
	svc, _ := newRequestServiceFixture(t, nil, nil)

	_, err := svc.Create(context.Background(), customerID, dto.CreateRepairRequest{ApplianceType: "tv", Address: strPtr("x")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), customerID, dto.CreateRepairRequest{CustomerName: "A", ApplianceType: "tv"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), customerID, dto.CreateRepairRequest{CustomerName: "A", ApplianceType: "tv", Address: strPtr("x"), Pincode: strPtr("40001")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func heldRequest(id int64, technicianID string, status models.RequestStatus, repair models.RepairStatus) models.RepairRequest {
	req := pendingRequest(id, "Colaba 400001")
	req.UserID = strPtr(customerID)
	req.TechnicianID = strPtr(technicianID)
	req.Status = status
	req.RepairStatus = repair
	return req
}

func TestRepairRequestServiceUpdateTrackingOneStepAtATime(t *testing.T) {
	svc, f := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusAssigned, models.RepairDiagnosisInspection)},
		nil,
		technician("tech-1", "400001", 1),
	)

	updated, err := svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairQuotationShared})
	require.NoError(t, err)
	assert.Equal(t, models.RepairQuotationShared, updated.RepairStatus)
	assert.Equal(t, models.StatusQuotationSubmitted, updated.Status)
	assert.Equal(t, []string{"tech-1"}, f.feeds.technicians)

	_, err = svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairInProgress})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairDiagnosisInspection})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = svc.UpdateTracking(context.Background(), "tech-2", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairQuotationAccepted})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: "teleported"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRepairRequestServiceSchedulePickupNeedsTime(t *testing.T) {
	svc, f := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusAssigned, models.RepairRequestAccepted)},
		nil,
		technician("tech-1", "400001", 1),
	)

	_, err := svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairPickupScheduled})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	pickup := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	updated, err := svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairPickupScheduled, ScheduledPickupDatetime: &pickup})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, updated.Status)
	require.NotNil(t, f.requests.requests[1].ScheduledPickupDatetime)
	assert.Equal(t, pickup, *f.requests.requests[1].ScheduledPickupDatetime)
}

func TestRepairRequestServiceDeliveryCompletesAndFreesCapacity(t *testing.T) {
	svc, f := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusInProgress, models.RepairReadyForDelivery)},
		nil,
		technician("tech-1", "400001", 3),
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	updated, err := svc.UpdateTracking(context.Background(), "tech-1", 1, dto.UpdateTrackingRequest{RepairStatus: models.RepairDelivered})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, models.RepairDelivered, updated.RepairStatus)

	profile := f.ledger.profiles["tech-1"]
	assert.Equal(t, 2, profile.ActiveRequestCount)
	assert.True(t, profile.CanReceiveRequests)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRepairRequestServiceGetVisibility(t *testing.T) {
	svc, _ := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusAssigned, models.RepairRequestAccepted), pendingRequest(2, "Fort 400001")},
		nil,
	)
	ctx := context.Background()

	_, err := svc.Get(ctx, customerID, models.RoleUser, 1)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "other-user", models.RoleUser, 1)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Get(ctx, "tech-1", models.RoleTechnician, 1)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "tech-2", models.RoleTechnician, 1)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Get(ctx, "tech-2", models.RoleTechnician, 2)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "admin", models.RoleAdmin, 1)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "admin", models.RoleAdmin, 77)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	mine, err := svc.ListByUser(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRepairRequestServiceAcceptQuotationStartsRepair(t *testing.T) {
	svc, f := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusQuotationSubmitted, models.RepairQuotationShared)},
		nil,
		technician("tech-1", "400001", 1),
	)
	ctx := context.Background()

	_, err := svc.AcceptQuotation(ctx, "other-user", 1)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	updated, err := svc.AcceptQuotation(ctx, customerID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, models.RepairInProgress, updated.RepairStatus)
	assert.Equal(t, []string{"tech-1"}, f.feeds.technicians)
	assert.Equal(t, 1, f.ledger.profiles["tech-1"].ActiveRequestCount)

	_, err = svc.AcceptQuotation(ctx, customerID, 1)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.RejectQuotation(ctx, customerID, 1)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestRepairRequestServiceRejectQuotationFreesCapacity(t *testing.T) {
	svc, f := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusQuotationSubmitted, models.RepairQuotationShared)},
		nil,
		technician("tech-1", "400001", 3),
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	updated, err := svc.RejectQuotation(context.Background(), customerID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, models.RepairQuotationShared, updated.RepairStatus)

	profile := f.ledger.profiles["tech-1"]
	assert.Equal(t, 2, profile.ActiveRequestCount)
	assert.True(t, profile.CanReceiveRequests)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventRequestCompleted, f.events.events[0].Type)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	_, err = svc.RejectQuotation(context.Background(), customerID, 1)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestRepairRequestServiceQuotationDecisionNeedsSharedQuote(t *testing.T) {
	svc, _ := newRequestServiceFixture(t,
		[]models.RepairRequest{heldRequest(1, "tech-1", models.StatusAssigned, models.RepairDiagnosisInspection)},
		nil,
		technician("tech-1", "400001", 1),
	)

	_, err := svc.AcceptQuotation(context.Background(), customerID, 1)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.RejectQuotation(context.Background(), customerID, 1)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	_, err = svc.RejectQuotation(context.Background(), customerID, 9)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
