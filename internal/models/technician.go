package models

import "time"

// MaxActiveRequests caps the number of open jobs a technician may hold.
const MaxActiveRequests = 3

// TechnicianProfile is the capacity and location slice of a profiles row.
type TechnicianProfile struct {
	ID                 string    `db:"id" json:"id"`
	FullName           *string   `db:"full_name" json:"full_name,omitempty"`
	PhoneNumber        *string   `db:"phone_number" json:"phone_number,omitempty"`
	Pincode            *string   `db:"pincode" json:"pincode,omitempty"`
	CityTown           *string   `db:"city_town" json:"city_town,omitempty"`
	State              *string   `db:"state" json:"state,omitempty"`
	Role               UserRole  `db:"role" json:"role"`
	ActiveRequestCount int       `db:"active_request_count" json:"active_request_count"`
	CanReceiveRequests bool      `db:"can_receive_requests" json:"can_receive_requests"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// PincodeValue returns the profile pincode or an empty string.
func (t *TechnicianProfile) PincodeValue() string {
	if t == nil || t.Pincode == nil {
		return ""
	}
	return *t.Pincode
}

// CanAccept reports whether the technician may take one more request.
func (t *TechnicianProfile) CanAccept() bool {
	return t != nil && t.CanReceiveRequests && t.ActiveRequestCount < MaxActiveRequests
}

// LedgerEntry is the capacity pair that must always move together.
type LedgerEntry struct {
	ActiveRequestCount int  `db:"active_request_count" json:"active_request_count"`
	CanReceiveRequests bool `db:"can_receive_requests" json:"can_receive_requests"`
}

// Ledger returns the technician's current ledger entry.
func (t *TechnicianProfile) Ledger() LedgerEntry {
	return LedgerEntry{ActiveRequestCount: t.ActiveRequestCount, CanReceiveRequests: t.CanReceiveRequests}
}

// Consistent reports whether the flag agrees with the count.
func (e LedgerEntry) Consistent() bool {
	return e.CanReceiveRequests == (e.ActiveRequestCount < MaxActiveRequests)
}

// LedgerDrift describes a technician whose ledger disagrees with stored assignments.
type LedgerDrift struct {
	TechnicianID       string `db:"id" json:"technician_id"`
	ActiveRequestCount int    `db:"active_request_count" json:"active_request_count"`
	CanReceiveRequests bool   `db:"can_receive_requests" json:"can_receive_requests"`
	OpenAssignments    int    `db:"open_assignments" json:"open_assignments"`
}
