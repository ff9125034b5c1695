package models

import "time"

// User represents a registered user. Every ledger row is scoped to a user.
type User struct {
	Base
	Email    string `gorm:"not null;uniqueIndex" json:"email"`
	Password string `gorm:"not null" json:"-"`

	// Failed-login tracking for the temporary lockout window.
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
}
