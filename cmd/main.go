package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"rentradar/internal/alert"
	"rentradar/internal/bootstrap"
	"rentradar/internal/config"
	cronpkg "rentradar/internal/cron"
	"rentradar/internal/middleware"
	"rentradar/internal/repository"
	"rentradar/internal/router"
	"rentradar/internal/scheduler"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger, err := newLogger(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := bootstrap.Migrate(db); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}

	// --- Outcome deduper (Redis with in-memory fallback) ---
	outcomeDeduper, dedupeErr := middleware.NewOutcomeDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		cfg.Queue.DedupTTL,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for outcome dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Alerts + Feedback ---
	notifier := alert.New(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID, logger)
	feedback := scheduler.NewFeedbackUpdater(db, cfg.Queue.QuarantineAfter, notifier, logger)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, db, cfg, feedback, outcomeDeduper, logger)

	// --- Maintenance scheduler ---
	cronRepos := &cronpkg.Repos{
		Source: repository.NewSourceRepository(db),
		Job:    repository.NewJobRepository(db),
		Cost:   repository.NewCostLedgerRepository(db),
	}
	maintenance := cronpkg.New(cfg, cronRepos, logger)
	maintenance.Start()

	// --- Start server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting rentradar scheduler", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	<-maintenance.Stop().Done()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
