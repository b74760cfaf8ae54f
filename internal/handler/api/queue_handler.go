package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rentradar/internal/monitoring"
)

// QueueHandler serves batch claims to extraction workers.
type QueueHandler struct {
	repos        *Repos
	maxBatchSize int
	logger       *zap.Logger
}

func NewQueueHandler(repos *Repos, maxBatchSize int, logger *zap.Logger) *QueueHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = 50
	}
	return &QueueHandler{repos: repos, maxBatchSize: maxBatchSize, logger: logger}
}

type claimRequest struct {
	BatchSize int    `json:"batch_size"`
	Region    string `json:"region"`
}

// Claim hands out up to batch_size pending jobs, highest score first.
// POST /api/queue/claim
func (h *QueueHandler) Claim(c echo.Context) error {
	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, "Invalid request body")
	}

	n := req.BatchSize
	if n <= 0 {
		n = 1
	}
	if n > h.maxBatchSize {
		n = h.maxBatchSize
	}

	jobs, err := h.repos.Job.ClaimBatch(c.Request().Context(), n, req.Region)
	if err != nil {
		h.logger.Error("Claim batch failed", zap.Int("batch_size", n), zap.Error(err))
		return serverError(c, "Failed to claim batch, retry with backoff")
	}

	monitoring.ClaimBatches.Inc()
	monitoring.JobsClaimed.Add(float64(len(jobs)))

	return successResponse(c, "Successful", map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Get returns one job so operators can inspect its status and metrics.
// GET /api/jobs/:id
func (h *QueueHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return errorResponse(c, "Invalid job id")
	}

	job, err := h.repos.Job.FindByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, "Job not found")
		}
		h.logger.Error("Failed to load job", zap.Uint64("job_id", id), zap.Error(err))
		return serverError(c, "Failed to load job")
	}
	return successResponse(c, "Successful", job)
}
