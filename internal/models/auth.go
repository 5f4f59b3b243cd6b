package models

import "github.com/golang-jwt/jwt/v5"

// AppMetadata carries server-controlled attributes of the hosted auth user.
type AppMetadata struct {
	Role UserRole `json:"role,omitempty"`
}

// JWTClaims is the access token payload issued by the hosted auth service.
// UserID is filled from the subject after verification.
type JWTClaims struct {
	UserID      string      `json:"-"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	AppRole     UserRole    `json:"-"`
	AppMetadata AppMetadata `json:"app_metadata"`
	jwt.RegisteredClaims
}
