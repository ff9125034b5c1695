package models

import "time"

// ImportRow is one staged transaction awaiting merge into the ledger.
// Rows are written in bulk by StartImport and consumed (deleted) by the
// merge pipeline; the presence of rows for an (user_id, import_id) pair
// is the only persisted signal that a merge is still pending.
//
// ID is the pre-generated id the transaction will keep after the move,
// and CategoryID is a pre-generated candidate id used only if
// CategoryName does not resolve to an existing category. Carrying both
// through every retry is what makes the merge's insert-on-conflict
// semantics idempotent.
type ImportRow struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index:idx_imports_user_import" json:"user_id"`
	ImportID  string    `gorm:"type:uuid;not null;index:idx_imports_user_import" json:"import_id"`
	CreatedAt time.Time `json:"created_at"`

	Date             time.Time `gorm:"not null" json:"date"`
	Amount           float64   `gorm:"not null" json:"amount"`
	Currency         string    `gorm:"not null" json:"currency"`
	CounterParty     string    `gorm:"not null" json:"counter_party"`
	OrigCounterParty string    `json:"orig_counter_party"`
	Additional       *string   `json:"additional,omitempty"`

	AccountID    *string `gorm:"type:uuid" json:"account_id,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
	CategoryID   *string `gorm:"type:uuid" json:"category_id,omitempty"`
}

// TableName keeps the staging table clearly separated from transactions.
func (ImportRow) TableName() string {
	return "transaction_imports"
}
