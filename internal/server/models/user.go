// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account holder. VerificationToken is non-nil only while the
// account is unverified.
type User struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"hashed_password"`
	IsActive          bool       `json:"is_active"`
	Avatar            *string    `json:"avatar"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
	IsVerified        bool       `json:"is_verified"`
	VerificationToken *string    `json:"verification_token"`
	Role              string     `json:"role"`
}
