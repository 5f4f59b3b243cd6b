package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerEntryConsistent(t *testing.T) {
	assert.True(t, LedgerEntry{ActiveRequestCount: 2, CanReceiveRequests: true}.Consistent())
	assert.True(t, LedgerEntry{ActiveRequestCount: 3, CanReceiveRequests: false}.Consistent())
	assert.False(t, LedgerEntry{ActiveRequestCount: 3, CanReceiveRequests: true}.Consistent())
	assert.False(t, LedgerEntry{ActiveRequestCount: 0, CanReceiveRequests: false}.Consistent())

	p := &TechnicianProfile{ActiveRequestCount: 1, CanReceiveRequests: true}
	assert.Equal(t, LedgerEntry{ActiveRequestCount: 1, CanReceiveRequests: true}, p.Ledger())
}

func TestTechnicianCanAccept(t *testing.T) {
	var missing *TechnicianProfile
	assert.False(t, missing.CanAccept())
	assert.True(t, (&TechnicianProfile{ActiveRequestCount: 2, CanReceiveRequests: true}).CanAccept())
	assert.False(t, (&TechnicianProfile{ActiveRequestCount: 3, CanReceiveRequests: true}).CanAccept())
	assert.False(t, (&TechnicianProfile{ActiveRequestCount: 0, CanReceiveRequests: false}).CanAccept())
}

func TestRepairStatusTransitions(t *testing.T) {
	assert.True(t, RepairRequestAccepted.CanTransitionTo(RepairPickupScheduled))
	assert.False(t, RepairRequestAccepted.CanTransitionTo(RepairDiagnosisInspection))
	assert.False(t, RepairPickupScheduled.CanTransitionTo(RepairRequestAccepted))
	assert.False(t, RepairDelivered.CanTransitionTo(RepairRequestSubmitted))
	assert.False(t, RepairStatus("unknown").Valid())

	status, ok := RepairDelivered.CoarseStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, status)

	_, ok = RepairPickupScheduled.CoarseStatus()
	assert.False(t, ok)
}

func TestRequestStatusClaimable(t *testing.T) {
	assert.True(t, StatusPendingAssignment.Claimable())
	assert.True(t, StatusPendingAcceptance.Claimable())
	assert.False(t, StatusAssigned.Claimable())
	assert.False(t, StatusCompleted.Claimable())
}
