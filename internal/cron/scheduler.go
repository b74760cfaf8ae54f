package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"rentradar/internal/config"
	"rentradar/internal/models"
	"rentradar/internal/monitoring"
	"rentradar/internal/repository"
	"rentradar/internal/scoring"
)

// releaseBatchSize caps how many due sources one release tick enqueues.
const releaseBatchSize = 200

// Scheduler manages the periodic maintenance passes.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	repos  *Repos
	logger *zap.Logger
}

// Repos bundles repositories needed by maintenance jobs.
type Repos struct {
	Source *repository.SourceRepository
	Job    *repository.JobRepository
	Cost   *repository.CostLedgerRepository
}

// New creates a new maintenance scheduler.
func New(cfg *config.Config, repos *Repos, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		cfg:    cfg,
		repos:  repos,
		logger: logger,
	}
}

// Start registers and starts all maintenance jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting maintenance scheduler...")

	// Release due sources - every minute
	s.cron.AddFunc("0 * * * * *", func() {
		s.logger.Debug("Running: release due sources")
		s.releaseDueSources()
	})

	// Reap expired processing leases - every minute
	s.cron.AddFunc("30 * * * * *", func() {
		s.logger.Debug("Running: reap expired leases")
		s.reapExpiredLeases()
	})

	// Queue depth gauges - every 30 seconds
	s.cron.AddFunc("*/30 * * * * *", func() {
		s.refreshQueueGauges()
	})

	// Nightly rescore of pending jobs - at 03:00
	s.cron.AddFunc("0 0 3 * * *", func() {
		s.logger.Debug("Running: nightly rescore")
		s.rescorePending()
	})

	// Daily cost summary - at 23:55
	s.cron.AddFunc("0 55 23 * * *", func() {
		s.logger.Debug("Running: daily cost summary")
		s.dailyCostSummary()
	})

	s.cron.Start()
	s.logger.Info("Maintenance scheduler started")
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) recoverFromPanic(job string) {
	if r := recover(); r != nil {
		s.logger.Error("Maintenance job panicked",
			zap.String("job", job), zap.Any("panic", r))
	}
}

// ── Release due sources ───────────────────────────────────────────────

// releaseDueSources enqueues a pending job for every active source whose
// next visit is overdue and which has nothing queued yet.
func (s *Scheduler) releaseDueSources() {
	defer s.recoverFromPanic("releaseDueSources")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.repos.Source.FindDue(ctx, releaseBatchSize)
	if err != nil {
		s.logger.Error("Failed to list due sources", zap.Error(err))
		return
	}

	now := time.Now()
	released := 0
	for _, src := range due {
		score := scoring.Score(src.DaysSinceLastScrape(now), src.VolatilityScore, src.SuccessRate/100, 0)
		if _, err := s.repos.Job.Enqueue(ctx, src.ID, "", score); err != nil {
			s.logger.Error("Failed to enqueue due source",
				zap.Uint("source_id", src.ID), zap.Error(err))
			continue
		}
		released++
	}

	if released > 0 {
		s.logger.Info("Released due sources", zap.Int("count", released))
	}
}

// ── Lease reaper ──────────────────────────────────────────────────────

// reapExpiredLeases returns jobs stuck in processing past the lease
// timeout (crashed worker, lost outcome) to pending for reclaim.
func (s *Scheduler) reapExpiredLeases() {
	defer s.recoverFromPanic("reapExpiredLeases")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reaped, err := s.repos.Job.ReapExpired(ctx, s.cfg.Queue.LeaseTimeout)
	if err != nil {
		s.logger.Error("Failed to reap expired leases", zap.Error(err))
		return
	}
	if reaped > 0 {
		monitoring.JobsReaped.Add(float64(reaped))
		s.logger.Warn("Reaped expired processing leases",
			zap.Int64("count", reaped),
			zap.Duration("lease_timeout", s.cfg.Queue.LeaseTimeout))
	}
}

// ── Queue depth gauges ────────────────────────────────────────────────

func (s *Scheduler) refreshQueueGauges() {
	defer s.recoverFromPanic("refreshQueueGauges")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if pending, err := s.repos.Job.CountByStatus(ctx, models.JobPending); err == nil {
		monitoring.PendingJobs.Set(float64(pending))
	}
	if processing, err := s.repos.Job.CountByStatus(ctx, models.JobProcessing); err == nil {
		monitoring.ProcessingJobs.Set(float64(processing))
	}
}

// ── Nightly rescore ───────────────────────────────────────────────────

func (s *Scheduler) rescorePending() {
	defer s.recoverFromPanic("rescorePending")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	updated, err := s.repos.Job.RescorePending(ctx)
	if err != nil {
		s.logger.Error("Nightly rescore failed", zap.Error(err))
		return
	}
	s.logger.Info("Rescored pending jobs", zap.Int("count", updated))
}

// ── Daily cost summary ────────────────────────────────────────────────

func (s *Scheduler) dailyCostSummary() {
	defer s.recoverFromPanic("dailyCostSummary")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	today := time.Now().Format("2006-01-02")
	entry, err := s.repos.Cost.ForDate(ctx, today)
	if err != nil {
		s.logger.Error("Failed to load cost summary", zap.Error(err))
		return
	}
	if entry == nil {
		s.logger.Info("Daily cost summary", zap.String("date", today), zap.Float64("cost_usd", 0))
		return
	}

	monitoring.DailyCost.Set(entry.EstimatedCost)
	s.logger.Info("Daily cost summary",
		zap.String("date", entry.Date),
		zap.Float64("cost_usd", entry.EstimatedCost),
		zap.Int("properties_scraped", entry.PropertiesScraped),
		zap.Int("ai_requests", entry.AIRequests),
		zap.Int64("tokens_used", entry.TokensUsed),
		zap.Float64("success_rate", entry.SuccessRate()),
		zap.Int64("avg_response_ms", entry.AvgResponseMs()),
		zap.Int("errors", entry.ErrorCount))
}
