package models

// UserRole mirrors the role column of the profiles table.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleTechnician UserRole = "technician"
	RoleAdmin      UserRole = "admin"
)
