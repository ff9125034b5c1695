package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/uuid"
)

// CategoryResult is the category slice of a flattened query row.
type CategoryResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsNeutral bool   `json:"is_neutral"`
}

// AccountResult is the account slice of a flattened query row.
type AccountResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LinkedTransaction is the compact form of a link's counterpart.
type LinkedTransaction struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Amount       float64   `json:"amount"`
	Currency     string    `json:"currency"`
	CounterParty string    `json:"counter_party"`
	Additional   *string   `json:"additional,omitempty"`
}

// LinkResult is one link of a transaction together with its counterpart.
type LinkResult struct {
	CreatedAt   time.Time         `json:"created_at"`
	Transaction LinkedTransaction `json:"transaction"`
}

// TransactionResult is one fully-resolved transaction: category and
// account flattened in, all links grouped under it.
type TransactionResult struct {
	ID               string          `json:"id"`
	Date             time.Time       `json:"date"`
	CategorizeOn     *time.Time      `json:"categorize_on,omitempty"`
	Amount           float64         `json:"amount"`
	Currency         string          `json:"currency"`
	CounterParty     string          `json:"counter_party"`
	OrigCounterParty string          `json:"orig_counter_party"`
	Additional       *string         `json:"additional,omitempty"`
	Category         *CategoryResult `json:"category,omitempty"`
	Account          *AccountResult  `json:"account,omitempty"`
	Links            []LinkResult    `json:"links"`
}

// QueryResult is one page of transactions plus the cursors to continue
// in either direction. A nil cursor means that side is exhausted.
type QueryResult struct {
	Transactions []TransactionResult `json:"transactions"`
	NextID       *string             `json:"next_id,omitempty"`
	PrevID       *string             `json:"prev_id,omitempty"`
}

// transactionService handles ledger reads and writes.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// txJoinRow is one physical row of the flattening join: a transaction
// repeated once per link, with category, account and counterpart columns
// aliased alongside.
type txJoinRow struct {
	ID               string     `gorm:"column:id"`
	Date             time.Time  `gorm:"column:date"`
	CategorizeOn     *time.Time `gorm:"column:categorize_on"`
	Amount           float64    `gorm:"column:amount"`
	Currency         string     `gorm:"column:currency"`
	CounterParty     string     `gorm:"column:counter_party"`
	OrigCounterParty string     `gorm:"column:orig_counter_party"`
	Additional       *string    `gorm:"column:additional"`

	CategoryID *string `gorm:"column:category_id"`
	CName      *string `gorm:"column:c_name"`
	CIsNeutral *bool   `gorm:"column:c_is_neutral"`

	AID   *string `gorm:"column:a_id"`
	AName *string `gorm:"column:a_name"`

	LinkCreatedAt *time.Time `gorm:"column:link_created_at"`
	LID           *string    `gorm:"column:l_id"`
	LDate         *time.Time `gorm:"column:l_date"`
	LAmount       *float64   `gorm:"column:l_amount"`
	LCurrency     *string    `gorm:"column:l_currency"`
	LCounterParty *string    `gorm:"column:l_counter_party"`
	LAdditional   *string    `gorm:"column:l_additional"`
}

const txJoinSelect = `
SELECT
	t.id AS id,
	t.date AS date,
	t.categorize_on AS categorize_on,
	t.amount AS amount,
	t.currency AS currency,
	t.counter_party AS counter_party,
	t.orig_counter_party AS orig_counter_party,
	t.additional AS additional,
	t.category_id AS category_id,
	c.name AS c_name,
	c.is_neutral AS c_is_neutral,
	a.id AS a_id,
	a.name AS a_name,
	link.created_at AS link_created_at,
	linked.id AS l_id,
	linked.date AS l_date,
	linked.amount AS l_amount,
	linked.currency AS l_currency,
	linked.counter_party AS l_counter_party,
	linked.additional AS l_additional
FROM transactions t
LEFT JOIN accounts a ON t.account_id = a.id
LEFT JOIN categories c ON t.category_id = c.id
LEFT JOIN transaction_links link
	ON link.transaction_a_id = t.id OR link.transaction_b_id = t.id
LEFT JOIN transactions linked
	ON linked.id = CASE WHEN link.transaction_a_id = t.id THEN link.transaction_b_id ELSE link.transaction_a_id END
WHERE t.user_id = ?`

// QueryTransactions returns one page of the user's ledger in the
// canonical order (date DESC, id DESC), flattened and linked.
//
// Pagination is keyset-based: the cursor names a transaction, and the
// page is fetched strictly before or after that transaction's (date, id)
// position. The over-fetch of one physical row is what detects whether
// more rows exist past the page.
func (s *transactionService) QueryTransactions(userID string, q TransactionQuery) (*QueryResult, error) {
	limit := pagination.ClampLimit(q.Limit)

	var sb strings.Builder
	sb.WriteString(txJoinSelect)
	args := []interface{}{userID}

	if search := strings.TrimSpace(q.Search); search != "" {
		if s.db.Dialector.Name() == "postgres" {
			sb.WriteString(" AND t.ts @@ plainto_tsquery('english', ?)")
			args = append(args, search)
		} else {
			sb.WriteString(" AND (t.counter_party LIKE ? OR t.additional LIKE ?)")
			pattern := "%" + search + "%"
			args = append(args, pattern, pattern)
		}
	}

	switch q.CategoryID {
	case "":
	case "none":
		sb.WriteString(" AND t.category_id IS NULL")
	default:
		sb.WriteString(" AND t.category_id = ?")
		args = append(args, q.CategoryID)
	}
	if q.AccountID != "" {
		sb.WriteString(" AND t.account_id = ?")
		args = append(args, q.AccountID)
	}

	// The cursor row's own (date, id) position splits the order; rows on
	// the requested side are fetched in the direction of travel.
	order := "DESC"
	if q.Cursor != nil {
		switch q.Cursor.Dir {
		case pagination.Before:
			sb.WriteString(` AND (
				(t.date = (SELECT date FROM transactions WHERE id = ?) AND t.id > ?)
				OR t.date > (SELECT date FROM transactions WHERE id = ?)
			)`)
			order = "ASC"
		case pagination.After:
			sb.WriteString(` AND (
				(t.date = (SELECT date FROM transactions WHERE id = ?) AND t.id < ?)
				OR t.date < (SELECT date FROM transactions WHERE id = ?)
			)`)
		}
		args = append(args, q.Cursor.ID, q.Cursor.ID, q.Cursor.ID)
	}

	sb.WriteString(" ORDER BY t.date " + order + ", t.id " + order + ", linked.id ASC")
	sb.WriteString(" LIMIT ?")
	args = append(args, limit+1)

	var rows []txJoinRow
	if err := s.db.Raw(sb.String(), args...).Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// hasMore counts physical join rows, same as the limit does.
	hasMore := len(rows) == limit+1
	if hasMore {
		rows = rows[:limit]
	}
	if q.Cursor != nil && q.Cursor.Dir == pagination.Before {
		reverseRows(rows)
	}

	transactions := flattenRows(rows)

	result := &QueryResult{Transactions: transactions}
	if len(transactions) > 0 {
		first := transactions[0].ID
		last := transactions[len(transactions)-1].ID
		result.NextID, result.PrevID = pagination.NextPrev(first, last, hasMore, q.Cursor)
	}
	return result, nil
}

// GetTransactionByID returns one flattened transaction with its links.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*TransactionResult, error) {
	var rows []txJoinRow
	err := s.db.Raw(txJoinSelect+" AND t.id = ? ORDER BY linked.id ASC", userID, transactionID).Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrTransactionNotFound
	}
	transactions := flattenRows(rows)
	return &transactions[0], nil
}

// flattenRows groups physical join rows into logical transactions,
// preserving first-seen order.
func flattenRows(rows []txJoinRow) []TransactionResult {
	transactions := make([]TransactionResult, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		i, seen := index[row.ID]
		if !seen {
			tx := TransactionResult{
				ID:               row.ID,
				Date:             row.Date,
				CategorizeOn:     row.CategorizeOn,
				Amount:           row.Amount,
				Currency:         row.Currency,
				CounterParty:     row.CounterParty,
				OrigCounterParty: row.OrigCounterParty,
				Additional:       row.Additional,
				Links:            []LinkResult{},
			}
			if row.CategoryID != nil && row.CName != nil {
				tx.Category = &CategoryResult{
					ID:        *row.CategoryID,
					Name:      *row.CName,
					IsNeutral: row.CIsNeutral != nil && *row.CIsNeutral,
				}
			}
			if row.AID != nil && row.AName != nil {
				tx.Account = &AccountResult{ID: *row.AID, Name: *row.AName}
			}
			i = len(transactions)
			index[row.ID] = i
			transactions = append(transactions, tx)
		}

		if row.LID != nil {
			link := LinkResult{
				Transaction: LinkedTransaction{
					ID:           *row.LID,
					CounterParty: derefString(row.LCounterParty),
					Currency:     derefString(row.LCurrency),
					Additional:   row.LAdditional,
				},
			}
			if row.LDate != nil {
				link.Transaction.Date = *row.LDate
			}
			if row.LAmount != nil {
				link.Transaction.Amount = *row.LAmount
			}
			if row.LinkCreatedAt != nil {
				link.CreatedAt = *row.LinkCreatedAt
			}
			transactions[i].Links = append(transactions[i].Links, link)
		}
	}
	return transactions
}

func reverseRows(rows []txJoinRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CreateTransaction inserts a manually entered transaction.
func (s *transactionService) CreateTransaction(userID string, date time.Time, amount float64, currency, counterParty string, additional, categoryID, accountID *string) (*models.Transaction, error) {
	if currency == "" || counterParty == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency and counter_party are required")
	}

	if categoryID != nil {
		var count int64
		s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *categoryID, userID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
	}
	if accountID != nil {
		var count int64
		s.db.Model(&models.Account{}).Where("id = ? AND user_id = ?", *accountID, userID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrAccountNotFound
		}
	}

	tx := &models.Transaction{
		UserID:           userID,
		Date:             date,
		Amount:           amount,
		Currency:         currency,
		CounterParty:     counterParty,
		OrigCounterParty: counterParty,
		Additional:       additional,
		CategoryID:       categoryID,
		AccountID:        accountID,
	}
	if err := s.db.Create(tx).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, nil
}

// UpdateTransaction applies the non-nil fields of upd to a transaction.
// The original counterparty is never touched by edits.
func (s *transactionService) UpdateTransaction(userID, transactionID string, upd TransactionUpdate) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{}
	if upd.Date != nil {
		updates["date"] = *upd.Date
	}
	if upd.ClearCategorizeOn {
		updates["categorize_on"] = nil
	} else if upd.CategorizeOn != nil {
		updates["categorize_on"] = *upd.CategorizeOn
	}
	if upd.Amount != nil {
		updates["amount"] = *upd.Amount
	}
	if upd.CounterParty != nil {
		updates["counter_party"] = *upd.CounterParty
	}
	if upd.Additional != nil {
		updates["additional"] = *upd.Additional
	}
	if upd.ClearCategory {
		updates["category_id"] = nil
	} else if upd.CategoryID != nil {
		var count int64
		s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *upd.CategoryID, userID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrCategoryNotFound
		}
		updates["category_id"] = *upd.CategoryID
	}
	if upd.AccountID != nil {
		var count int64
		s.db.Model(&models.Account{}).Where("id = ? AND user_id = ?", *upd.AccountID, userID).Count(&count)
		if count == 0 {
			return nil, apperrors.ErrAccountNotFound
		}
		updates["account_id"] = *upd.AccountID
	}

	if len(updates) > 0 {
		if err := s.db.Model(&tx).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return &tx, nil
}

// DeleteTransaction removes a transaction and any links pointing at it.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	return s.db.Transaction(func(dbtx *gorm.DB) error {
		res := dbtx.Where("id = ? AND user_id = ?", transactionID, userID).Delete(&models.Transaction{})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}
		err := dbtx.Where("user_id = ? AND (transaction_a_id = ? OR transaction_b_id = ?)",
			userID, transactionID, transactionID).Delete(&models.TransactionLink{}).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// BulkCategorize assigns a category (or clears it, for nil) on a set of
// transactions and reports how many rows changed.
func (s *transactionService) BulkCategorize(userID string, transactionIDs []string, categoryID *string) (int64, error) {
	if len(transactionIDs) == 0 {
		return 0, nil
	}
	if categoryID != nil {
		var count int64
		s.db.Model(&models.Category{}).Where("id = ? AND user_id = ?", *categoryID, userID).Count(&count)
		if count == 0 {
			return 0, apperrors.ErrCategoryNotFound
		}
	}

	res := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND id IN ?", userID, transactionIDs).
		Update("category_id", categoryID)
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}

// LinkTransactions links two transactions of the same user. The pair is
// unordered; inserting (a, b) when (b, a) exists is a no-op, which keeps
// concurrent double-submits from creating duplicate links.
func (s *transactionService) LinkTransactions(userID, transactionAID, transactionBID string) error {
	if transactionAID == transactionBID {
		return apperrors.ErrSelfLink
	}

	var count int64
	s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND id IN ?", userID, []string{transactionAID, transactionBID}).
		Count(&count)
	if count != 2 {
		return apperrors.ErrTransactionNotFound
	}

	err := s.db.Exec(`
		INSERT INTO transaction_links (id, user_id, created_at, updated_at, transaction_a_id, transaction_b_id)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM transaction_links
			WHERE user_id = ?
			AND (
				(transaction_a_id = ? AND transaction_b_id = ?)
				OR (transaction_a_id = ? AND transaction_b_id = ?)
			)
		)`,
		uuid.New(), userID, time.Now(), time.Now(), transactionAID, transactionBID,
		userID,
		transactionAID, transactionBID,
		transactionBID, transactionAID,
	).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// UnlinkTransactions removes the link between two transactions, in
// either stored orientation.
func (s *transactionService) UnlinkTransactions(userID, transactionAID, transactionBID string) error {
	if transactionAID == transactionBID {
		return apperrors.ErrSelfLink
	}
	err := s.db.Where(`user_id = ?
		AND (
			(transaction_a_id = ? AND transaction_b_id = ?)
			OR (transaction_a_id = ? AND transaction_b_id = ?)
		)`,
		userID, transactionAID, transactionBID, transactionBID, transactionAID).
		Delete(&models.TransactionLink{}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
