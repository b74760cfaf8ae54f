package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rentradar/internal/config"
	"rentradar/internal/handler/api"
	"rentradar/internal/middleware"
	"rentradar/internal/repository"
	"rentradar/internal/scheduler"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	cfg *config.Config,
	feedback *scheduler.FeedbackUpdater,
	outcomeDeduper middleware.OutcomeDeduper,
	logger *zap.Logger,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Repositories
	repos := &api.Repos{
		Source:      repository.NewSourceRepository(db),
		Job:         repository.NewJobRepository(db),
		PriceChange: repository.NewPriceChangeRepository(db),
		Cost:        repository.NewCostLedgerRepository(db),
	}

	// Handlers
	queueHandler := api.NewQueueHandler(repos, cfg.Queue.MaxBatchSize, logger)
	outcomeHandler := api.NewOutcomeHandler(feedback, logger)
	priceHandler := api.NewPriceHandler(repos, logger)
	costHandler := api.NewCostHandler(repos, cfg.Costs.ProjectionDays, logger)
	sourceHandler := api.NewSourceHandler(repos, logger)

	// API group with auth middleware
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(cfg.API.Key))

	apiGroup.POST("/queue/claim", queueHandler.Claim)
	apiGroup.GET("/jobs/:id", queueHandler.Get)
	apiGroup.POST("/jobs/:id/outcome", outcomeHandler.Report, middleware.OutcomeDedup(outcomeDeduper))
	apiGroup.POST("/prices", priceHandler.Record)
	apiGroup.GET("/prices/:external_id", priceHandler.History)
	apiGroup.POST("/costs", costHandler.Record)
	apiGroup.GET("/costs/projection", costHandler.Projection)
	apiGroup.GET("/costs/:date", costHandler.Summary)
	apiGroup.GET("/sources", sourceHandler.List)
	apiGroup.GET("/sources/:id", sourceHandler.Get)
	apiGroup.POST("/sources", sourceHandler.Create)
	apiGroup.PATCH("/sources/:id/activate", sourceHandler.Activate)

	// Unauthenticated surface
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
