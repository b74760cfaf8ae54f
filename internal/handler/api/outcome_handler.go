package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"rentradar/internal/scheduler"
)

// OutcomeHandler receives job outcome reports from extraction workers.
type OutcomeHandler struct {
	feedback *scheduler.FeedbackUpdater
	logger   *zap.Logger
}

func NewOutcomeHandler(feedback *scheduler.FeedbackUpdater, logger *zap.Logger) *OutcomeHandler {
	return &OutcomeHandler{feedback: feedback, logger: logger}
}

type outcomeRequest struct {
	Success      bool    `json:"success"`
	DurationMs   int     `json:"duration_ms"`
	PriceChanged bool    `json:"price_changed"`
	UnitsFound   int     `json:"units_found"`
	CostUSD      float64 `json:"cost_usd"`
	Error        string  `json:"error"`
}

// Report applies one job outcome.
// POST /api/jobs/:id/outcome
func (h *OutcomeHandler) Report(c echo.Context) error {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || jobID == 0 {
		return errorResponse(c, "Invalid job id")
	}

	var req outcomeRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, "Invalid request body")
	}

	report := scheduler.OutcomeReport{
		Success:      req.Success,
		DurationMs:   req.DurationMs,
		PriceChanged: req.PriceChanged,
		UnitsFound:   req.UnitsFound,
		CostUSD:      req.CostUSD,
		ErrorText:    req.Error,
	}

	err = h.feedback.ReportOutcome(c.Request().Context(), uint(jobID), report)
	switch {
	case err == nil:
		return successResponse(c, "Outcome recorded", nil)
	case errors.Is(err, scheduler.ErrJobNotFound):
		return errorResponse(c, "Job not found")
	case errors.Is(err, scheduler.ErrJobNotProcessing):
		return errorResponse(c, "Job is not being processed")
	default:
		h.logger.Error("Failed to apply outcome",
			zap.Uint64("job_id", jobID), zap.Error(err))
		return serverError(c, "Failed to record outcome, retry with backoff")
	}
}
