package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"rentradar/internal/costs"
	"rentradar/internal/monitoring"
	"rentradar/internal/repository"
)

// CostHandler ingests per-call spend and serves projections.
type CostHandler struct {
	repos          *Repos
	projectionDays int
	logger         *zap.Logger
}

func NewCostHandler(repos *Repos, projectionDays int, logger *zap.Logger) *CostHandler {
	if projectionDays <= 0 {
		projectionDays = 30
	}
	return &CostHandler{repos: repos, projectionDays: projectionDays, logger: logger}
}

type costRequest struct {
	Date       string             `json:"date"`
	Properties int                `json:"properties"`
	Requests   int                `json:"requests"`
	Tokens     int64              `json:"tokens"`
	CostUSD    float64            `json:"cost_usd"`
	Successes  int                `json:"successes"`
	ResponseMs int64              `json:"response_ms"`
	Errors     int                `json:"errors"`
	Breakdown  map[string]float64 `json:"breakdown"`
}

// Record merges one spend delta into the date's bucket. Ledger failures
// are logged and swallowed so they never fail a scrape outcome upstream.
// POST /api/costs
func (h *CostHandler) Record(c echo.Context) error {
	var req costRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, "Invalid request body")
	}

	today := time.Now().Format("2006-01-02")
	date := req.Date
	if date == "" {
		date = today
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return errorResponse(c, "date must be YYYY-MM-DD")
	}

	delta := repository.CostDelta{
		Properties: req.Properties,
		Requests:   req.Requests,
		Tokens:     req.Tokens,
		CostUSD:    req.CostUSD,
		Successes:  req.Successes,
		ResponseMs: req.ResponseMs,
		Errors:     req.Errors,
		Breakdown:  req.Breakdown,
	}
	if err := h.repos.Cost.Record(c.Request().Context(), date, delta); err != nil {
		h.logger.Error("Failed to record cost", zap.String("date", date), zap.Error(err))
		return successResponse(c, "Cost recording failed, ignored", nil)
	}

	if date == today {
		if entry, err := h.repos.Cost.ForDate(c.Request().Context(), today); err == nil && entry != nil {
			monitoring.DailyCost.Set(entry.EstimatedCost)
		}
	}

	return successResponse(c, "Successful", nil)
}

// Projection forecasts spend for the coming days.
// GET /api/costs/projection?days=N
func (h *CostHandler) Projection(c echo.Context) error {
	days := h.projectionDays
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			return errorResponse(c, "days must be between 1 and 365")
		}
		days = parsed
	}

	history, err := h.repos.Cost.TrailingHistory(c.Request().Context(), 14)
	if err != nil {
		h.logger.Error("Failed to load cost history", zap.Error(err))
		return serverError(c, "Failed to load cost history")
	}

	projections := costs.Project(history, days, time.Now())
	return successResponse(c, "Successful", projections)
}

// Summary returns one day's ledger bucket with derived rates.
// GET /api/costs/:date
func (h *CostHandler) Summary(c echo.Context) error {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return errorResponse(c, "date must be YYYY-MM-DD")
	}

	entry, err := h.repos.Cost.ForDate(c.Request().Context(), date)
	if err != nil {
		h.logger.Error("Failed to load cost entry", zap.String("date", date), zap.Error(err))
		return serverError(c, "Failed to load cost entry")
	}
	if entry == nil {
		return errorResponse(c, "No spend recorded for this date")
	}

	return successResponse(c, "Successful", map[string]interface{}{
		"entry":           entry,
		"success_rate":    entry.SuccessRate(),
		"avg_response_ms": entry.AvgResponseMs(),
	})
}
