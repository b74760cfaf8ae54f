package api

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"rentradar/internal/monitoring"
)

// PriceHandler ingests newly extracted listing prices into the changelog.
// Whatever persists a listing price must call this as part of the same
// write so the volatility signal stays truthful.
type PriceHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewPriceHandler(repos *Repos, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{repos: repos, logger: logger}
}

type priceRequest struct {
	ExternalID string  `json:"external_id"`
	Price      float64 `json:"price"`
}

// Record writes a changelog entry when the price moved.
// POST /api/prices
func (h *PriceHandler) Record(c echo.Context) error {
	var req priceRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, "Invalid request body")
	}
	if req.ExternalID == "" {
		return errorResponse(c, "external_id is required")
	}
	if req.Price < 0 {
		return errorResponse(c, "price must not be negative")
	}

	changed, err := h.repos.PriceChange.RecordIfChanged(c.Request().Context(), req.ExternalID, req.Price)
	if err != nil {
		h.logger.Error("Failed to record price",
			zap.String("external_id", req.ExternalID), zap.Error(err))
		return serverError(c, "Failed to record price, retry with backoff")
	}
	if changed {
		monitoring.PriceChangesRecorded.Inc()
	}

	return successResponse(c, "Successful", map[string]interface{}{
		"changed": changed,
	})
}

// History returns the changelog for one listing.
// GET /api/prices/:external_id
func (h *PriceHandler) History(c echo.Context) error {
	externalID := c.Param("external_id")
	if externalID == "" {
		return errorResponse(c, "external_id is required")
	}

	entries, err := h.repos.PriceChange.History(c.Request().Context(), externalID)
	if err != nil {
		h.logger.Error("Failed to load price history",
			zap.String("external_id", externalID), zap.Error(err))
		return serverError(c, "Failed to load price history")
	}
	return successResponse(c, "Successful", entries)
}
