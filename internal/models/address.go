package models

import "time"

// Address is a structured location saved by a customer.
type Address struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	StreetAddress *string   `db:"street_address" json:"street_address,omitempty"`
	City          *string   `db:"city" json:"city,omitempty"`
	State         *string   `db:"state" json:"state,omitempty"`
	Pincode       *string   `db:"pincode" json:"pincode,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Location is the set of fields used to find a nearby technician.
type Location struct {
	Pincode string `json:"pincode,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
}

// Empty reports whether no location field is set.
func (l Location) Empty() bool {
	return l.Pincode == "" && l.City == "" && l.State == ""
}
