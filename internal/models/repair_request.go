package models

import "time"

// RequestStatus is the coarse lifecycle of a repair request.
type RequestStatus string

const (
	StatusPendingAssignment  RequestStatus = "pending_assignment"
	StatusPendingAcceptance  RequestStatus = "pending_acceptance"
	StatusAssigned           RequestStatus = "assigned"
	StatusInProgress         RequestStatus = "in_progress"
	StatusQuotationSubmitted RequestStatus = "quotation_submitted"
	StatusCompleted          RequestStatus = "completed"
)

// ClaimableStatuses lists the statuses a request may be assigned from.
var ClaimableStatuses = []RequestStatus{StatusPendingAssignment, StatusPendingAcceptance}

// Claimable reports whether a request in status s can still be assigned.
func (s RequestStatus) Claimable() bool {
	for _, c := range ClaimableStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// RepairStatus is the fine-grained tracking state shown to customers.
type RepairStatus string

const (
	RepairRequestSubmitted    RepairStatus = "request_submitted"
	RepairRequestAccepted     RepairStatus = "request_accepted"
	RepairPickupScheduled     RepairStatus = "pickup_scheduled"
	RepairDiagnosisInspection RepairStatus = "diagnosis_inspection"
	RepairQuotationShared     RepairStatus = "quotation_shared"
	RepairQuotationAccepted   RepairStatus = "quotation_accepted"
	RepairInProgress          RepairStatus = "repair_in_progress"
	RepairQualityCheck        RepairStatus = "quality_check"
	RepairReadyForDelivery    RepairStatus = "ready_for_delivery"
	RepairDelivered           RepairStatus = "delivered"
)

// repairFlow is the ordered tracking sequence. Each step may only advance to the next one.
var repairFlow = []RepairStatus{
	RepairRequestSubmitted,
	RepairRequestAccepted,
	RepairPickupScheduled,
	RepairDiagnosisInspection,
	RepairQuotationShared,
	RepairQuotationAccepted,
	RepairInProgress,
	RepairQualityCheck,
	RepairReadyForDelivery,
	RepairDelivered,
}

// Valid reports whether s is a known repair status.
func (s RepairStatus) Valid() bool {
	return s.position() >= 0
}

func (s RepairStatus) position() int {
	for i, step := range repairFlow {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the status that follows s, if any.
func (s RepairStatus) Next() (RepairStatus, bool) {
	pos := s.position()
	if pos < 0 || pos == len(repairFlow)-1 {
		return "", false
	}
	return repairFlow[pos+1], true
}

// CanTransitionTo reports whether tracking may move from s to next.
func (s RepairStatus) CanTransitionTo(next RepairStatus) bool {
	want, ok := s.Next()
	return ok && want == next
}

// CoarseStatus returns the request status implied by reaching repair status s.
// The boolean is false when s does not change the coarse status.
func (s RepairStatus) CoarseStatus() (RequestStatus, bool) {
	switch s {
	case RepairRequestAccepted:
		return StatusAssigned, true
	case RepairQuotationShared:
		return StatusQuotationSubmitted, true
	case RepairInProgress:
		return StatusInProgress, true
	case RepairDelivered:
		return StatusCompleted, true
	}
	return "", false
}

// RepairRequest is a customer repair job.
type RepairRequest struct {
	ID                      int64         `db:"id" json:"id"`
	UserID                  *string       `db:"user_id" json:"user_id,omitempty"`
	CustomerName            string        `db:"customer_name" json:"customer_name"`
	ApplianceType           string        `db:"appliance_type" json:"appliance_type"`
	ModelName               *string       `db:"model_name" json:"model_name,omitempty"`
	SerialNumber            *string       `db:"serial_number" json:"serial_number,omitempty"`
	ServiceType             *string       `db:"service_type" json:"service_type,omitempty"`
	Description             *string       `db:"description" json:"description,omitempty"`
	Address                 *string       `db:"address" json:"address,omitempty"`
	AddressID               *string       `db:"address_id" json:"address_id,omitempty"`
	Status                  RequestStatus `db:"status" json:"status"`
	RepairStatus            RepairStatus  `db:"repair_status" json:"repair_status"`
	TechnicianID            *string       `db:"technician_id" json:"technician_id,omitempty"`
	ScheduledPickupDatetime *time.Time    `db:"scheduled_pickup_datetime" json:"scheduled_pickup_datetime,omitempty"`
	CompletionDate          *time.Time    `db:"completion_date" json:"completion_date,omitempty"`
	CreatedAt               time.Time     `db:"created_at" json:"created_at"`
}

// AddressValue returns the free-text address or an empty string.
func (r *RepairRequest) AddressValue() string {
	if r == nil || r.Address == nil {
		return ""
	}
	return *r.Address
}

// AssignedTo reports whether the request is held by technicianID.
func (r *RepairRequest) AssignedTo(technicianID string) bool {
	return r != nil && r.TechnicianID != nil && *r.TechnicianID == technicianID
}

// Completion closes a request held by TechnicianID at repair status To.
// A non-empty From requires the request to still be at that repair status.
type Completion struct {
	RequestID    int64
	TechnicianID string
	From         RepairStatus
	To           RepairStatus
}

// TrackingUpdate is a single forward step of a request's repair status.
type TrackingUpdate struct {
	RequestID       int64
	TechnicianID    string
	From            RepairStatus
	To              RepairStatus
	Status          RequestStatus
	ScheduledPickup *time.Time
}
