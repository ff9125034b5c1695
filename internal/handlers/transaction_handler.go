package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// TransactionHandler handles ledger read and write requests
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	Date         string  `json:"date" binding:"required"`
	Amount       float64 `json:"amount" binding:"required"`
	Currency     string  `json:"currency" binding:"required,iso4217"`
	CounterParty string  `json:"counter_party" binding:"required"`
	Additional   *string `json:"additional"`
	CategoryID   *string `json:"category_id"`
	AccountID    *string `json:"account_id"`
}

// UpdateTransactionRequest represents the request payload for updating a
// transaction. Absent fields are left untouched; the Clear flags reset the
// corresponding nullable field and win over a value supplied alongside them.
type UpdateTransactionRequest struct {
	Date              *string  `json:"date"`
	CategorizeOn      *string  `json:"categorize_on"`
	ClearCategorizeOn bool     `json:"clear_categorize_on"`
	Amount            *float64 `json:"amount"`
	CounterParty      *string  `json:"counter_party"`
	Additional        *string  `json:"additional"`
	CategoryID        *string  `json:"category_id"`
	ClearCategory     bool     `json:"clear_category"`
	AccountID         *string  `json:"account_id"`
}

// BulkCategorizeRequest represents the request payload for bulk categorization
type BulkCategorizeRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1"`
	// CategoryID null removes the category from every listed transaction.
	CategoryID *string `json:"category_id"`
}

// LinkRequest represents the request payload for linking two transactions
type LinkRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
}

// QueryTransactions lists transactions with keyset pagination
// @Summary     List transactions
// @Description Returns transactions in reverse chronological order with cursor pagination
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       before query string false "Cursor: return the page preceding this transaction id"
// @Param       after query string false "Cursor: return the page following this transaction id"
// @Param       limit query int false "Page size (max 100)"
// @Param       search query string false "Free-text filter"
// @Param       category_id query string false "Category filter; 'none' selects uncategorized"
// @Param       account_id query string false "Account filter"
// @Success     200 {object} services.QueryResult "Transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions [get]
func (h *TransactionHandler) QueryTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	before := c.Query("before")
	after := c.Query("after")
	if before != "" && after != "" {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
			"before": "cannot be combined with after",
			"after":  "cannot be combined with before",
		}))
		return
	}

	q := services.TransactionQuery{
		Search:     c.Query("search"),
		CategoryID: c.Query("category_id"),
		AccountID:  c.Query("account_id"),
	}
	if before != "" {
		q.Cursor = pagination.BeforeCursor(before)
	} else if after != "" {
		q.Cursor = pagination.AfterCursor(after)
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
				"limit": "must be an integer",
			}))
			return
		}
		q.Limit = limit
	}

	result, err := h.transactionService.QueryTransactions(userID, q)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction returns a single transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} map[string]interface{} "Transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.transactionService.GetTransactionByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// CreateTransaction creates a transaction manually
// @Summary     Create a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} map[string]interface{} "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseFlexibleTime(req.Date)
	if err != nil {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
			"date": "must be RFC 3339 or YYYY-MM-DD",
		}))
		return
	}

	tx, err := h.transactionService.CreateTransaction(userID, date, req.Amount, req.Currency, req.CounterParty, req.Additional, req.CategoryID, req.AccountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// UpdateTransaction updates a transaction
// @Summary     Update a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Changes"
// @Success     200 {object} map[string]interface{} "Transaction updated"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	upd := services.TransactionUpdate{
		ClearCategorizeOn: req.ClearCategorizeOn,
		Amount:            req.Amount,
		CounterParty:      req.CounterParty,
		Additional:        req.Additional,
		CategoryID:        req.CategoryID,
		ClearCategory:     req.ClearCategory,
		AccountID:         req.AccountID,
	}
	if req.Date != nil {
		date, err := parseFlexibleTime(*req.Date)
		if err != nil {
			respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
				"date": "must be RFC 3339 or YYYY-MM-DD",
			}))
			return
		}
		upd.Date = &date
	}
	if req.CategorizeOn != nil {
		categorizeOn, err := parseFlexibleTime(*req.CategorizeOn)
		if err != nil {
			respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
				"categorize_on": "must be RFC 3339 or YYYY-MM-DD",
			}))
			return
		}
		upd.CategorizeOn = &categorizeOn
	}

	tx, err := h.transactionService.UpdateTransaction(userID, c.Param("id"), upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteTransaction removes a transaction and its links
// @Summary     Delete a transaction
// @Tags        transactions
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// BulkCategorize assigns or clears the category on a set of transactions
// @Summary     Bulk categorize transactions
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkCategorizeRequest true "Transaction ids and target category"
// @Success     200 {object} map[string]interface{} "Number of transactions updated"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /transactions/bulk/categorize [post]
func (h *TransactionHandler) BulkCategorize(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkCategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	updated, err := h.transactionService.BulkCategorize(userID, req.TransactionIDs, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// LinkTransaction links two transactions
// @Summary     Link transactions
// @Description Creates an undirected link between the path transaction and the body transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body LinkRequest true "Transaction to link to"
// @Success     204 "Linked"
// @Failure     400 {object} ErrorResponse "Self link"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id}/links [post]
func (h *TransactionHandler) LinkTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.transactionService.LinkTransactions(userID, c.Param("id"), req.TransactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnlinkTransaction removes the link between two transactions
// @Summary     Unlink transactions
// @Tags        transactions
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       linkedId path string true "Linked transaction ID"
// @Success     204 "Unlinked"
// @Failure     400 {object} ErrorResponse "Self link"
// @Router      /transactions/{id}/links/{linkedId} [delete]
func (h *TransactionHandler) UnlinkTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.UnlinkTransactions(userID, c.Param("id"), c.Param("linkedId")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
