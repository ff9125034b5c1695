package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/services"
)

// StatsHandler handles statistics requests
type StatsHandler struct {
	statsService services.StatsServicer
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService services.StatsServicer) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats returns per-month income, expense, and neutral aggregates
// @Summary     Transaction statistics
// @Description Aggregates transactions per calendar month in the requested timezone.
// @Description Linked transfers are netted against each other before bucketing.
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       from query string true "Range start, inclusive (RFC 3339 or YYYY-MM-DD)"
// @Param       to query string true "Range end, exclusive (RFC 3339 or YYYY-MM-DD)"
// @Param       timezone query string false "IANA timezone for month bucketing, defaults to UTC"
// @Success     200 {object} services.StatsResult "Statistics"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, err := parseFlexibleTime(c.Query("from"))
	if err != nil {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
			"from": "must be RFC 3339 or YYYY-MM-DD",
		}))
		return
	}
	to, err := parseFlexibleTime(c.Query("to"))
	if err != nil {
		respondWithError(c, apperrors.WithDetails(apperrors.ErrInvalidInput, map[string]string{
			"to": "must be RFC 3339 or YYYY-MM-DD",
		}))
		return
	}

	timezone := c.Query("timezone")
	if timezone == "" {
		timezone = "UTC"
	}

	result, err := h.statsService.GetStats(userID, from, to, timezone)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
