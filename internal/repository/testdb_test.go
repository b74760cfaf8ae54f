package repository

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentradar/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Source{},
		&models.ScrapeJob{},
		&models.PriceChange{},
		&models.CostLedgerEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedSource(t *testing.T, db *gorm.DB, name, region string, active bool) *models.Source {
	t.Helper()

	src := &models.Source{
		URL:         "https://" + name + ".example.com/listings",
		Name:        name,
		Active:      active,
		Cadence:     models.CadenceWeekly,
		NextScrape:  time.Now().Add(-time.Hour),
		Priority:    5,
		Region:      region,
		SuccessRate: 100,
	}
	if err := db.Create(src).Error; err != nil {
		t.Fatalf("seed source %s: %v", name, err)
	}
	return src
}

func seedJob(t *testing.T, db *gorm.DB, sourceID uint, score int, createdAt time.Time) *models.ScrapeJob {
	t.Helper()

	job := &models.ScrapeJob{
		SourceID:      sourceID,
		Status:        models.JobPending,
		PriorityScore: score,
		CreatedAt:     createdAt,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}
