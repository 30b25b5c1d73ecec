package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/learning-center-api/internal/middleware"
	"github.com/edupulse/learning-center-api/internal/service"
	appErrors "github.com/edupulse/learning-center-api/pkg/errors"
	"github.com/edupulse/learning-center-api/pkg/response"
)

// LeaderboardHandler exposes daily leaderboard endpoints.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler constructs LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

func parseDateQuery(c *gin.Context) (time.Time, error) {
	dateStr := c.Query("date")
	if dateStr == "" {
		return time.Now().UTC(), nil
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidDate, "date must use the YYYY-MM-DD format")
	}
	return date, nil
}

// Get godoc
// @Summary Daily leaderboard
// @Description Standings for a date; defaults to today when no date is given
// @Tags Leaderboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Get(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.leaderboard.Get(c.Request.Context(), date, 0)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "calculated_at", result.CalculatedAt)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Today godoc
// @Summary Today's leaderboard
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaderboard/today [get]
func (h *LeaderboardHandler) Today(c *gin.Context) {
	result, err := h.leaderboard.Today(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// TopThree godoc
// @Summary Podium for a date
// @Description The top three students for a date (default today); fewer when fewer participated
// @Tags Leaderboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaderboard/top_three [get]
func (h *LeaderboardHandler) TopThree(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.leaderboard.TopThree(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Monthly godoc
// @Summary Monthly leaderboard
// @Description Standings computed over a calendar month's ratings
// @Tags Leaderboard
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/monthly [get]
func (h *LeaderboardHandler) Monthly(c *gin.Context) {
	now := time.Now().UTC()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "month must be a number"))
		return
	}

	result, err := h.leaderboard.Monthly(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CalculateRequest is the optional recalculation payload. A date in the
// body wins over the query parameter; both default to today.
type CalculateRequest struct {
	Date string `json:"date"`
}

// Calculate godoc
// @Summary Recalculate leaderboard
// @Description Rebuilds the standings for a date from that day's ratings; idempotent
// @Tags Leaderboard
// @Accept json
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param payload body CalculateRequest false "Optional date payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/calculate [post]
func (h *LeaderboardHandler) Calculate(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Request.ContentLength > 0 {
		var req CalculateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid calculate payload"))
			return
		}
		if req.Date != "" {
			parsed, perr := time.Parse("2006-01-02", req.Date)
			if perr != nil {
				response.Error(c, appErrors.Clone(appErrors.ErrInvalidDate, "date must use the YYYY-MM-DD format"))
				return
			}
			date = parsed
		}
	}

	result, err := h.leaderboard.Calculate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export leaderboard
// @Description Renders a date's standings as CSV or PDF
// @Tags Leaderboard
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaderboard/export [get]
func (h *LeaderboardHandler) Export(c *gin.Context) {
	date, err := parseDateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.leaderboard.Export(c.Request.Context(), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard-%s.%s", date.UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
