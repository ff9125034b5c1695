package models

import "time"

// Transaction represents one ledger entry. Amounts are signed: positive
// is an inflow, negative an outflow, in a single currency per transaction.
type Transaction struct {
	Base
	UserID string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Date   time.Time `gorm:"not null;index" json:"date"`

	// CategorizeOn optionally moves the transaction into a different
	// statistics period than its booking date.
	CategorizeOn *time.Time `json:"categorize_on,omitempty"`

	Amount   float64 `gorm:"not null" json:"amount"`
	Currency string  `gorm:"not null" json:"currency"`

	// CounterParty is the display name; OrigCounterParty preserves the
	// raw value from the source statement even after the display value
	// has been edited.
	CounterParty     string  `gorm:"not null" json:"counter_party"`
	OrigCounterParty string  `json:"orig_counter_party"`
	Additional       *string `json:"additional,omitempty"`

	AccountID  *string `gorm:"type:uuid" json:"account_id,omitempty"`
	CategoryID *string `gorm:"type:uuid" json:"category_id,omitempty"`

	// Relationships
	Account  *Account  `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
