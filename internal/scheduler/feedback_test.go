package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentradar/internal/models"
)

type stubNotifier struct {
	quarantined []*models.Source
}

func (s *stubNotifier) SourceQuarantined(src *models.Source) {
	s.quarantined = append(s.quarantined, src)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Source{}, &models.ScrapeJob{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedProcessing(t *testing.T, db *gorm.DB, src *models.Source) *models.ScrapeJob {
	t.Helper()

	if err := db.Create(src).Error; err != nil {
		t.Fatalf("seed source: %v", err)
	}
	started := time.Now()
	job := &models.ScrapeJob{
		SourceID:  src.ID,
		Status:    models.JobProcessing,
		Attempts:  1,
		StartedAt: &started,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func newUpdater(db *gorm.DB, notifier *stubNotifier) *FeedbackUpdater {
	return NewFeedbackUpdater(db, 5, notifier, zap.NewNop())
}

func TestReportOutcomeSuccess(t *testing.T) {
	db := newTestDB(t)
	notifier := &stubNotifier{}
	updater := newUpdater(db, notifier)

	src := &models.Source{
		URL:                 "https://berlin.example.com",
		Name:                "berlin",
		Active:              true,
		Cadence:             models.CadenceDaily,
		SuccessRate:         50,
		ScrapeCount:         2,
		ConsecutiveFailures: 3,
		VolatilityScore:     5,
		LastError:           "timeout",
	}
	job := seedProcessing(t, db, src)

	err := updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{
		Success:      true,
		DurationMs:   800,
		PriceChanged: true,
		UnitsFound:   12,
		CostUSD:      0.40,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	var gotJob models.ScrapeJob
	db.First(&gotJob, job.ID)
	if gotJob.Status != models.JobCompleted {
		t.Errorf("job status = %q, want completed", gotJob.Status)
	}
	if math.Abs(gotJob.SuccessRate-0.5) > 1e-9 {
		t.Errorf("job success rate = %v, want 0.5", gotJob.SuccessRate)
	}
	if gotJob.AvgDurationMs != 400 {
		t.Errorf("avg duration = %d, want 400", gotJob.AvgDurationMs)
	}
	if gotJob.LastSuccessful == nil || gotJob.FinishedAt == nil {
		t.Error("last_successful_scrape / finished_at not stamped")
	}

	var gotSrc models.Source
	db.First(&gotSrc, src.ID)
	if gotSrc.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures = %d, want 0 after success", gotSrc.ConsecutiveFailures)
	}
	if gotSrc.VolatilityScore != 15 {
		t.Errorf("volatility = %d, want 15 (+10 on price change)", gotSrc.VolatilityScore)
	}
	wantRate := (50.0*2 + 100) / 3
	if math.Abs(gotSrc.SuccessRate-wantRate) > 1e-9 {
		t.Errorf("source success rate = %v, want %v", gotSrc.SuccessRate, wantRate)
	}
	if math.Abs(gotSrc.TotalCost-0.40) > 1e-9 {
		t.Errorf("total cost = %v, want 0.40", gotSrc.TotalCost)
	}
	if gotSrc.LastScraped == nil {
		t.Fatal("last_scraped not stamped")
	}
	wantNext := time.Now().AddDate(0, 0, 1)
	if diff := gotSrc.NextScrape.Sub(wantNext); diff < -time.Minute || diff > time.Minute {
		t.Errorf("next_scrape = %v, want ~%v (daily cadence)", gotSrc.NextScrape, wantNext)
	}

	var pending int64
	db.Model(&models.ScrapeJob{}).
		Where("source_id = ? AND status = ?", src.ID, models.JobPending).
		Count(&pending)
	if pending != 1 {
		t.Errorf("pending follow-up jobs = %d, want 1", pending)
	}
	if len(notifier.quarantined) != 0 {
		t.Errorf("unexpected quarantine alert")
	}
}

func TestReportOutcomeFailureQuarantines(t *testing.T) {
	db := newTestDB(t)
	notifier := &stubNotifier{}
	updater := newUpdater(db, notifier)

	src := &models.Source{
		URL:                 "https://flaky.example.com",
		Name:                "flaky",
		Active:              true,
		Cadence:             models.CadenceWeekly,
		ConsecutiveFailures: 4,
	}
	job := seedProcessing(t, db, src)

	err := updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{
		Success:   false,
		ErrorText: "connection refused",
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	var gotSrc models.Source
	db.First(&gotSrc, src.ID)
	if gotSrc.Active {
		t.Error("source still active after 5th consecutive failure")
	}
	if gotSrc.ConsecutiveFailures != 5 {
		t.Errorf("consecutive failures = %d, want 5", gotSrc.ConsecutiveFailures)
	}
	if gotSrc.LastError != "connection refused" {
		t.Errorf("last error = %q, want recorded", gotSrc.LastError)
	}
	if len(notifier.quarantined) != 1 {
		t.Fatalf("quarantine alerts = %d, want 1", len(notifier.quarantined))
	}

	// A quarantined source gets no follow-up job.
	var pending int64
	db.Model(&models.ScrapeJob{}).
		Where("source_id = ? AND status = ?", src.ID, models.JobPending).
		Count(&pending)
	if pending != 0 {
		t.Errorf("pending jobs for quarantined source = %d, want 0", pending)
	}

	var gotJob models.ScrapeJob
	db.First(&gotJob, job.ID)
	if gotJob.Status != models.JobFailed {
		t.Errorf("job status = %q, want failed", gotJob.Status)
	}
}

func TestFailureBeforeThresholdKeepsSourceActive(t *testing.T) {
	db := newTestDB(t)
	notifier := &stubNotifier{}
	updater := newUpdater(db, notifier)

	src := &models.Source{
		URL:                 "https://wobbly.example.com",
		Name:                "wobbly",
		Active:              true,
		Cadence:             models.CadenceWeekly,
		ConsecutiveFailures: 3,
	}
	job := seedProcessing(t, db, src)

	if err := updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{Success: false}); err != nil {
		t.Fatalf("report: %v", err)
	}

	var gotSrc models.Source
	db.First(&gotSrc, src.ID)
	if !gotSrc.Active {
		t.Error("source deactivated before the 5th consecutive failure")
	}
	if gotSrc.ConsecutiveFailures != 4 {
		t.Errorf("consecutive failures = %d, want 4", gotSrc.ConsecutiveFailures)
	}
	if len(notifier.quarantined) != 0 {
		t.Error("unexpected quarantine alert")
	}
}

func TestVolatilityBounds(t *testing.T) {
	db := newTestDB(t)
	updater := newUpdater(db, &stubNotifier{})

	capped := &models.Source{
		URL: "https://hot.example.com", Name: "hot", Active: true,
		Cadence: models.CadenceDaily, VolatilityScore: 95,
	}
	job := seedProcessing(t, db, capped)
	if err := updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{Success: true, PriceChanged: true}); err != nil {
		t.Fatalf("report: %v", err)
	}
	var got models.Source
	db.First(&got, capped.ID)
	if got.VolatilityScore != 100 {
		t.Errorf("volatility = %d, want capped at 100", got.VolatilityScore)
	}

	floored := &models.Source{
		URL: "https://calm.example.com", Name: "calm", Active: true,
		Cadence: models.CadenceDaily, VolatilityScore: 0,
	}
	job = seedProcessing(t, db, floored)
	if err := updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{Success: true}); err != nil {
		t.Fatalf("report: %v", err)
	}
	var gotFloored models.Source
	db.First(&gotFloored, floored.ID)
	if gotFloored.VolatilityScore != 0 {
		t.Errorf("volatility = %d, want floored at 0", gotFloored.VolatilityScore)
	}
}

func TestReportOutcomeRejectsBadJobs(t *testing.T) {
	db := newTestDB(t)
	updater := newUpdater(db, &stubNotifier{})

	err := updater.ReportOutcome(context.Background(), 12345, OutcomeReport{Success: true})
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("unknown job error = %v, want ErrJobNotFound", err)
	}

	src := &models.Source{URL: "https://idle.example.com", Name: "idle", Active: true, Cadence: models.CadenceWeekly}
	if err := db.Create(src).Error; err != nil {
		t.Fatalf("seed source: %v", err)
	}
	job := &models.ScrapeJob{SourceID: src.ID, Status: models.JobPending}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	err = updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{Success: true})
	if !errors.Is(err, ErrJobNotProcessing) {
		t.Errorf("pending job error = %v, want ErrJobNotProcessing", err)
	}
}

func TestReenqueueSkippedWhenJobInFlight(t *testing.T) {
	db := newTestDB(t)
	updater := newUpdater(db, &stubNotifier{})

	src := &models.Source{URL: "https://busy.example.com", Name: "busy", Active: true, Cadence: models.CadenceDaily}
	job := seedProcessing(t, db, src)

	// A second in-flight job for the same source (multiple listings).
	started := time.Now()
	other := &models.ScrapeJob{SourceID: src.ID, Status: models.JobProcessing, Attempts: 1, StartedAt: &started}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed second job: %v", err)
	}

	if err := updater.ReportOutcome(context.Background(), job.ID, OutcomeReport{Success: true}); err != nil {
		t.Fatalf("report: %v", err)
	}

	var pending int64
	db.Model(&models.ScrapeJob{}).
		Where("source_id = ? AND status = ?", src.ID, models.JobPending).
		Count(&pending)
	if pending != 0 {
		t.Errorf("pending jobs = %d, want 0 while another job is in flight", pending)
	}
}

func TestNextScrapeAfterCadences(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if got := NextScrapeAfter(models.CadenceDaily, now); !got.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("daily = %v", got)
	}
	if got := NextScrapeAfter(models.CadenceWeekly, now); !got.Equal(now.AddDate(0, 0, 7)) {
		t.Errorf("weekly = %v", got)
	}
	if got := NextScrapeAfter(models.CadenceMonthly, now); !got.Equal(now.AddDate(0, 1, 0)) {
		t.Errorf("monthly = %v", got)
	}
	if got := NextScrapeAfter("", now); !got.Equal(now.AddDate(0, 0, 7)) {
		t.Errorf("unknown cadence should fall back to weekly, got %v", got)
	}
}
