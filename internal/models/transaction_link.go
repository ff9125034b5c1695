package models

// TransactionLink is a symmetric relation between two transactions of the
// same user, e.g. a transfer and its passthrough counterpart. At most one
// link row exists per unordered pair per user; the insert is gated by an
// existence subquery rather than a column constraint because (a, b) and
// (b, a) are the same link.
type TransactionLink struct {
	Base
	UserID         string `gorm:"type:uuid;not null;index" json:"user_id"`
	TransactionAID string `gorm:"type:uuid;not null;index" json:"transaction_a_id"`
	TransactionBID string `gorm:"type:uuid;not null;index" json:"transaction_b_id"`
}
