package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentradar/internal/models"
)

// CostDelta is one additive contribution to a date's ledger bucket.
type CostDelta struct {
	Properties int
	Requests   int
	Tokens     int64
	CostUSD    float64
	Successes  int
	ResponseMs int64
	Errors     int
	// Breakdown adds per provider/model spend, merged key-wise.
	Breakdown map[string]float64
}

// CostLedgerRepository accumulates per-date AI spend. Every write is an
// additive merge so concurrent workers can report without clobbering
// each other.
type CostLedgerRepository struct {
	db *gorm.DB
}

func NewCostLedgerRepository(db *gorm.DB) *CostLedgerRepository {
	return &CostLedgerRepository{db: db}
}

// Record merges a delta into the bucket for date ("2006-01-02"),
// creating the row on the date's first write.
func (r *CostLedgerRepository) Record(ctx context.Context, date string, delta CostDelta) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Create-if-absent; the unique date index makes this race-safe.
		seed := models.CostLedgerEntry{Date: date, Breakdown: "{}"}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CostLedgerEntry{}).
			Where("date = ?", date).
			Updates(map[string]interface{}{
				"properties_scraped": gorm.Expr("properties_scraped + ?", delta.Properties),
				"ai_requests":        gorm.Expr("ai_requests + ?", delta.Requests),
				"tokens_used":        gorm.Expr("tokens_used + ?", delta.Tokens),
				"estimated_cost":     gorm.Expr("estimated_cost + ?", delta.CostUSD),
				"success_count":      gorm.Expr("success_count + ?", delta.Successes),
				"request_count":      gorm.Expr("request_count + ?", delta.Requests),
				"total_response_ms":  gorm.Expr("total_response_ms + ?", delta.ResponseMs),
				"error_count":        gorm.Expr("error_count + ?", delta.Errors),
			})
		if res.Error != nil {
			return res.Error
		}

		if len(delta.Breakdown) == 0 {
			return nil
		}
		return r.mergeBreakdown(tx, date, delta.Breakdown)
	})
}

// mergeBreakdown folds per-provider spend into the row's JSON column under
// the transaction's row lock.
func (r *CostLedgerRepository) mergeBreakdown(tx *gorm.DB, date string, add map[string]float64) error {
	q := tx.Where("date = ?", date)
	if tx.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entry models.CostLedgerEntry
	if err := q.First(&entry).Error; err != nil {
		return err
	}

	merged := map[string]float64{}
	if entry.Breakdown != "" {
		if err := json.Unmarshal([]byte(entry.Breakdown), &merged); err != nil {
			merged = map[string]float64{}
		}
	}
	for key, amount := range add {
		merged[key] += amount
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}

	return tx.Model(&models.CostLedgerEntry{}).
		Where("date = ?", date).
		Update("breakdown", string(raw)).Error
}

// ForDate returns one day's bucket, nil when the date has no spend yet.
func (r *CostLedgerRepository) ForDate(ctx context.Context, date string) (*models.CostLedgerEntry, error) {
	var entry models.CostLedgerEntry
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// TrailingHistory returns the entries for the last `days` calendar days,
// oldest first. Missing days simply have no row.
func (r *CostLedgerRepository) TrailingHistory(ctx context.Context, days int) ([]models.CostLedgerEntry, error) {
	since := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	var entries []models.CostLedgerEntry
	err := r.db.WithContext(ctx).
		Where("date > ?", since).
		Order("date ASC").
		Find(&entries).Error
	return entries, err
}
