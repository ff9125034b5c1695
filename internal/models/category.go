package models

// Category represents a transaction category. Names are unique per user,
// case-insensitively (same enforcement strategy as Account names).
//
// Neutral categories are tracked in statistics but excluded from income
// and expense totals.
type Category struct {
	Base
	UserID    string `gorm:"type:uuid;not null;index;uniqueIndex:idx_categories_user_name" json:"user_id"`
	Name      string `gorm:"not null;uniqueIndex:idx_categories_user_name" json:"name"`
	IsNeutral bool   `gorm:"not null;default:false" json:"is_neutral"`
}
