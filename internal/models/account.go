package models

// Account represents a bank account transactions are recorded against.
// Names are unique per user, case-insensitively; the service layer checks
// with a lower() lookup and Postgres enforces it with a functional unique
// index (see migrations).
type Account struct {
	Base
	UserID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_accounts_user_name" json:"user_id"`
	Name   string `gorm:"not null;uniqueIndex:idx_accounts_user_name" json:"name"`

	// ExternalID is the bank-provided identifier, used for dedup when
	// syncing from a bank integration.
	ExternalID *string `json:"external_id,omitempty"`
}
