package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentradar/internal/alert"
	"rentradar/internal/models"
	"rentradar/internal/monitoring"
	"rentradar/internal/scoring"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobNotProcessing = errors.New("job is not in processing state")
)

// OutcomeReport is what an extraction worker sends back after a job.
type OutcomeReport struct {
	Success      bool
	DurationMs   int
	PriceChanged bool
	UnitsFound   int
	CostUSD      float64
	ErrorText    string
}

// FeedbackUpdater applies job outcomes back onto the job and its source,
// advances the schedule, and re-enqueues follow-up work. Each outcome is
// applied as one transaction; a partially applied report would corrupt the
// scheduling metrics.
type FeedbackUpdater struct {
	db              *gorm.DB
	quarantineAfter int
	alerts          alert.Notifier
	logger          *zap.Logger
}

func NewFeedbackUpdater(db *gorm.DB, quarantineAfter int, alerts alert.Notifier, logger *zap.Logger) *FeedbackUpdater {
	if quarantineAfter <= 0 {
		quarantineAfter = 5
	}
	return &FeedbackUpdater{
		db:              db,
		quarantineAfter: quarantineAfter,
		alerts:          alerts,
		logger:          logger,
	}
}

// ReportOutcome records one job outcome. Must be called exactly once per
// job; replays are dropped upstream by the idempotency middleware.
func (f *FeedbackUpdater) ReportOutcome(ctx context.Context, jobID uint, report OutcomeReport) error {
	var quarantined *models.Source

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, src, err := f.loadForUpdate(tx, jobID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := f.applyToJob(tx, job, report, now); err != nil {
			return err
		}

		wasActive := src.Active
		f.applyToSource(src, report, now)
		if err := tx.Save(src).Error; err != nil {
			return err
		}
		if wasActive && !src.Active {
			quarantined = src
		}

		if src.Active {
			if err := f.reenqueue(tx, src, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	result := "failure"
	if report.Success {
		result = "success"
	}
	monitoring.OutcomesReported.WithLabelValues(result).Inc()

	if quarantined != nil {
		monitoring.SourcesQuarantined.Inc()
		f.logger.Warn("Source quarantined after repeated failures",
			zap.Uint("source_id", quarantined.ID),
			zap.String("url", quarantined.URL),
			zap.Int("consecutive_failures", quarantined.ConsecutiveFailures))
		f.alerts.SourceQuarantined(quarantined)
	}
	return nil
}

func (f *FeedbackUpdater) loadForUpdate(tx *gorm.DB, jobID uint) (*models.ScrapeJob, *models.Source, error) {
	lock := tx
	if tx.Dialector.Name() == "mysql" {
		lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var job models.ScrapeJob
	if err := lock.First(&job, jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrJobNotFound
		}
		return nil, nil, err
	}
	if job.Status != models.JobProcessing {
		return nil, nil, fmt.Errorf("%w: job %d is %s", ErrJobNotProcessing, job.ID, job.Status)
	}

	var src models.Source
	if err := lock.First(&src, job.SourceID).Error; err != nil {
		return nil, nil, fmt.Errorf("load source %d: %w", job.SourceID, err)
	}
	return &job, &src, nil
}

func (f *FeedbackUpdater) applyToJob(tx *gorm.DB, job *models.ScrapeJob, report OutcomeReport, now time.Time) error {
	attempts := job.Attempts
	if attempts < 0 {
		attempts = 0
	}

	observed := 0.0
	job.Status = models.JobFailed
	if report.Success {
		observed = 1.0
		job.Status = models.JobCompleted
		job.LastSuccessful = &now
	}
	job.SuccessRate = (job.SuccessRate*float64(attempts) + observed) / float64(attempts+1)
	job.AvgDurationMs = (job.AvgDurationMs*attempts + report.DurationMs) / (attempts + 1)
	job.FinishedAt = &now

	return tx.Save(job).Error
}

// applyToSource mutates the source's scheduling and quality metrics in
// place. Caller persists under the same transaction.
func (f *FeedbackUpdater) applyToSource(src *models.Source, report OutcomeReport, now time.Time) {
	scrapes := src.ScrapeCount

	if report.Success {
		src.ConsecutiveFailures = 0
		src.LastError = ""
		src.AvgUnitsFound = (src.AvgUnitsFound*float64(scrapes) + float64(report.UnitsFound)) / float64(scrapes+1)
	} else {
		src.ConsecutiveFailures++
		if report.ErrorText != "" {
			src.LastError = report.ErrorText
		}
		if src.ConsecutiveFailures >= f.quarantineAfter {
			src.Active = false
		}
	}

	observed := 0.0
	if report.Success {
		observed = 100.0
	}
	src.SuccessRate = (src.SuccessRate*float64(scrapes) + observed) / float64(scrapes+1)

	if report.PriceChanged {
		src.VolatilityScore += 10
		if src.VolatilityScore > 100 {
			src.VolatilityScore = 100
		}
	} else {
		src.VolatilityScore--
		if src.VolatilityScore < 0 {
			src.VolatilityScore = 0
		}
	}

	src.TotalCost += report.CostUSD
	src.AvgCostPerScrape = (src.AvgCostPerScrape*float64(scrapes) + report.CostUSD) / float64(scrapes+1)
	src.ScrapeCount = scrapes + 1

	scraped := now
	src.LastScraped = &scraped
	src.NextScrape = NextScrapeAfter(src.Cadence, now)
}

// reenqueue inserts a fresh pending job for the source unless one is
// already pending or processing. It runs inside the outcome transaction,
// which holds the source row lock, so it cannot race an Enqueue from the
// release pass (which locks the same row).
func (f *FeedbackUpdater) reenqueue(tx *gorm.DB, src *models.Source, now time.Time) error {
	var count int64
	err := tx.Model(&models.ScrapeJob{}).
		Where("source_id = ? AND status IN ?", src.ID, []string{models.JobPending, models.JobProcessing}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	job := models.ScrapeJob{
		SourceID:      src.ID,
		Status:        models.JobPending,
		PriorityScore: scoring.Score(src.DaysSinceLastScrape(now), src.VolatilityScore, src.SuccessRate/100, 0),
	}
	return tx.Create(&job).Error
}

// NextScrapeAfter advances the schedule by one cadence step from now.
func NextScrapeAfter(cadence string, now time.Time) time.Time {
	switch cadence {
	case models.CadenceDaily:
		return now.AddDate(0, 0, 1)
	case models.CadenceMonthly:
		return now.AddDate(0, 1, 0)
	default: // weekly
		return now.AddDate(0, 0, 7)
	}
}
