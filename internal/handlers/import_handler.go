package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/services"
	"moneta/internal/statement"
)

// ImportHandler handles bank statement import requests
type ImportHandler struct {
	importService services.ImportServicer
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService services.ImportServicer) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// ImportRequest represents the multipart form fields accompanying the
// statement file.
type ImportRequest struct {
	Format    string  `form:"format" binding:"required,statement_format"`
	Currency  string  `form:"currency" binding:"omitempty,iso4217"`
	AccountID *string `form:"account_id"`
}

// ImportResponse acknowledges an accepted import
type ImportResponse struct {
	ImportID string `json:"import_id"`
	RowCount int    `json:"row_count"`
}

// ImportStatement accepts a bank statement file and starts the import pipeline
// @Summary     Import a bank statement
// @Description Stages the statement rows and merges them into the ledger asynchronously.
// @Description An interrupted merge resumes on the next server start.
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "Statement file"
// @Param       format formData string true "Statement format (generic or op)"
// @Param       currency formData string false "ISO 4217 currency, defaults to EUR"
// @Param       account_id formData string false "Account to attach the transactions to"
// @Success     202 {object} ImportResponse "Import accepted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     422 {object} ErrorResponse "Unparsable statement"
// @Router      /imports [post]
func (h *ImportHandler) ImportStatement(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ImportRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	parser, err := statement.ParserFor(req.Format)
	if err != nil {
		respondWithError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
			"file": "statement file is required",
		}))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	importID, rowCount, err := h.importService.StartImport(userID, file, parser, req.Currency, req.AccountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Merge in the background; staged rows make the merge resumable if
	// the process dies before it finishes.
	go func() {
		if err := h.importService.RunImportMerge(userID, importID); err != nil {
			logger.Get().Errorw("import merge failed",
				"user_id", userID,
				"import_id", importID,
				"error", err.Error(),
			)
		}
	}()

	c.JSON(http.StatusAccepted, ImportResponse{ImportID: importID, RowCount: rowCount})
}
