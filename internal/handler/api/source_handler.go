package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rentradar/internal/models"
	"rentradar/internal/repository"
)

// SourceHandler covers source onboarding and operator actions.
type SourceHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewSourceHandler(repos *Repos, logger *zap.Logger) *SourceHandler {
	return &SourceHandler{repos: repos, logger: logger}
}

// List returns sources with pagination and optional search/region filter.
// GET /api/sources
func (h *SourceHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	query := c.QueryParam("q")
	region := c.QueryParam("region")

	sources, total, err := h.repos.Source.FindAll(c.Request().Context(), limit, page, query, region)
	if err != nil {
		h.logger.Error("Failed to list sources", zap.Error(err))
		return serverError(c, "Failed to retrieve sources")
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return successResponse(c, "Successful", paginatedResponse(sources, total, page, limit))
}

// Get returns one source with its scheduling metrics.
// GET /api/sources/:id
func (h *SourceHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return errorResponse(c, "Invalid source id")
	}

	src, err := h.repos.Source.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, "Source not found")
		}
		h.logger.Error("Failed to load source", zap.Uint64("source_id", id), zap.Error(err))
		return serverError(c, "Failed to load source")
	}
	return successResponse(c, "Successful", src)
}

type createSourceRequest struct {
	URL           string `json:"url"`
	Name          string `json:"name"`
	Cadence       string `json:"cadence"`
	Priority      int    `json:"priority"`
	Region        string `json:"region"`
	ExpectedUnits int    `json:"expected_units"`
}

// Create registers a new scrape target. The source starts due, so the
// next release pass enqueues its first job.
// POST /api/sources
func (h *SourceHandler) Create(c echo.Context) error {
	var req createSourceRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, "Invalid request body")
	}
	if req.URL == "" {
		return errorResponse(c, "url is required")
	}
	switch req.Cadence {
	case "":
		req.Cadence = models.CadenceWeekly
	case models.CadenceDaily, models.CadenceWeekly, models.CadenceMonthly:
	default:
		return errorResponse(c, "cadence must be daily, weekly or monthly")
	}
	if req.Priority < 1 || req.Priority > 10 {
		if req.Priority != 0 {
			return errorResponse(c, "priority must be between 1 and 10")
		}
		req.Priority = 5
	}

	src := &models.Source{
		URL:           req.URL,
		Name:          req.Name,
		Active:        true,
		Cadence:       req.Cadence,
		NextScrape:    time.Now(),
		Priority:      req.Priority,
		Region:        req.Region,
		ExpectedUnits: req.ExpectedUnits,
		SuccessRate:   100,
	}
	if err := h.repos.Source.Create(c.Request().Context(), src); err != nil {
		if errors.Is(err, repository.ErrSourceExists) {
			return errorResponse(c, "Source with this URL already exists")
		}
		h.logger.Error("Failed to create source", zap.String("url", req.URL), zap.Error(err))
		return serverError(c, "Failed to create source")
	}

	return successResponse(c, "Successful", src)
}

// Activate lifts a quarantine.
// PATCH /api/sources/:id/activate
func (h *SourceHandler) Activate(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return errorResponse(c, "Invalid source id")
	}

	if err := h.repos.Source.Reactivate(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, "Source not found")
		}
		h.logger.Error("Failed to reactivate source", zap.Uint64("source_id", id), zap.Error(err))
		return serverError(c, "Failed to reactivate source")
	}
	return successResponse(c, "Successful", nil)
}
