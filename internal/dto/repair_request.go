package dto

import (
	"time"

	"github.com/repairjunction/repairjunction-api/internal/models"
)

// CreateRepairRequest is the customer payload for a new repair job.
type CreateRepairRequest struct {
	CustomerName            string     `json:"customer_name" validate:"required,max=200"`
	ApplianceType           string     `json:"appliance_type" validate:"required,max=100"`
	ModelName               *string    `json:"model_name,omitempty" validate:"omitempty,max=200"`
	SerialNumber            *string    `json:"serial_number,omitempty" validate:"omitempty,max=200"`
	ServiceType             *string    `json:"service_type,omitempty" validate:"omitempty,max=100"`
	Description             *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address                 *string    `json:"address,omitempty" validate:"omitempty,max=500"`
	AddressID               *string    `json:"address_id,omitempty" validate:"omitempty,uuid"`
	Pincode                 *string    `json:"pincode,omitempty" validate:"omitempty,len=6,numeric"`
	City                    *string    `json:"city,omitempty" validate:"omitempty,max=100"`
	State                   *string    `json:"state,omitempty" validate:"omitempty,max=100"`
	ScheduledPickupDatetime *time.Time `json:"scheduled_pickup_datetime,omitempty"`
}

// CreateRepairResponse returns the stored request and how assignment went.
type CreateRepairResponse struct {
	Request    *models.RepairRequest `json:"request"`
	Assignment *models.AssignResult  `json:"assignment"`
}

// UpdateTrackingRequest advances a request's repair status by one step.
type UpdateTrackingRequest struct {
	RepairStatus            models.RepairStatus `json:"repair_status" validate:"required"`
	ScheduledPickupDatetime *time.Time          `json:"scheduled_pickup_datetime,omitempty"`
}

// PincodeExtraction reports what the extractor found in an address.
// Near and InProximity are set when the caller compares against another pincode.
type PincodeExtraction struct {
	Address     string `json:"address"`
	Pincode     string `json:"pincode,omitempty"`
	Strategy    string `json:"strategy"`
	Found       bool   `json:"found"`
	Near        string `json:"near,omitempty"`
	InProximity *bool  `json:"in_proximity,omitempty"`
}
