package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"rentradar/internal/models"
	"rentradar/internal/repository"
)

// Repos bundles the repositories shared by the API handlers.
type Repos struct {
	Source      *repository.SourceRepository
	Job         *repository.JobRepository
	PriceChange *repository.PriceChangeRepository
	Cost        *repository.CostLedgerRepository
}

func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

// serverError is reserved for storage failures the caller should retry
// with backoff.
func serverError(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

func paginatedResponse(data interface{}, total int64, page, limit int) models.PaginatedResponse {
	return models.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		limit = 50
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}
