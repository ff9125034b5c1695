package services

import (
	"io"
	"time"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/statement"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, name string, externalID *string) (*models.Account, error)
	GetUserAccounts(userID string) ([]models.Account, error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID, name string) (*models.Account, error)
	DeleteAccount(userID, accountID string) error
}

// CategoryWithCount is a category together with the number of
// transactions currently assigned to it.
type CategoryWithCount struct {
	models.Category
	TransactionCount int64 `json:"transaction_count"`
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, isNeutral bool) (*models.Category, error)
	GetUserCategories(userID string) ([]CategoryWithCount, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name string, isNeutral *bool) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionQuery holds the parameters for a paginated transaction listing.
type TransactionQuery struct {
	Cursor *pagination.Cursor
	Limit  int
	// Search is a free-text filter over counterparty and detail fields.
	Search string
	// CategoryID filters to one category; the literal value "none"
	// selects uncategorized transactions.
	CategoryID string
	AccountID  string
}

// TransactionUpdate carries the mutable transaction fields; nil pointers
// leave the stored value untouched.
type TransactionUpdate struct {
	Date         *time.Time
	CategorizeOn *time.Time
	// ClearCategorizeOn resets CategorizeOn to null; it wins over a
	// non-nil CategorizeOn.
	ClearCategorizeOn bool
	Amount            *float64
	CounterParty      *string
	Additional        *string
	CategoryID        *string
	ClearCategory     bool
	AccountID         *string
}

// TransactionServicer defines the contract for ledger reads and writes.
type TransactionServicer interface {
	QueryTransactions(userID string, q TransactionQuery) (*QueryResult, error)
	GetTransactionByID(userID, transactionID string) (*TransactionResult, error)
	CreateTransaction(userID string, date time.Time, amount float64, currency, counterParty string, additional, categoryID, accountID *string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, upd TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
	BulkCategorize(userID string, transactionIDs []string, categoryID *string) (int64, error)
	LinkTransactions(userID, transactionAID, transactionBID string) error
	UnlinkTransactions(userID, transactionAID, transactionBID string) error
}

// ImportServicer defines the contract for the bulk import pipeline.
type ImportServicer interface {
	StartImport(userID string, r io.Reader, parser statement.RecordParser, currency string, accountID *string) (importID string, rowCount int, err error)
	RunImportMerge(userID, importID string) error
	RecoverPendingImports()
}

// StatsServicer defines the contract for the statistics engine.
type StatsServicer interface {
	GetStats(userID string, from, to time.Time, timezone string) (*StatsResult, error)
}
