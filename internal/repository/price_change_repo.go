package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"rentradar/internal/models"
)

// PriceChangeRepository maintains the append-only price changelog that
// drives the volatility signal.
type PriceChangeRepository struct {
	db *gorm.DB
}

func NewPriceChangeRepository(db *gorm.DB) *PriceChangeRepository {
	return &PriceChangeRepository{db: db}
}

// RecordIfChanged writes a changelog entry only when the observed price
// differs from the latest recorded one. The first observation for a listing
// is always written as `initial`. Returns whether an entry was written.
func (r *PriceChangeRepository) RecordIfChanged(ctx context.Context, externalID string, price float64) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last models.PriceChange
		err := tx.Where("external_id = ?", externalID).
			Order("id DESC").
			First(&last).Error

		changeType := models.ChangeInitial
		switch {
		case err == gorm.ErrRecordNotFound:
			// first observation, keep initial
		case err != nil:
			return err
		case price == last.Price:
			return nil
		case price > last.Price:
			changeType = models.ChangeIncreased
		default:
			changeType = models.ChangeDecreased
		}

		entry := models.PriceChange{
			ExternalID: externalID,
			Price:      price,
			ChangeType: changeType,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// History returns the changelog for one listing, oldest first.
func (r *PriceChangeRepository) History(ctx context.Context, externalID string) ([]models.PriceChange, error) {
	var entries []models.PriceChange
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// ChangeCountSince counts real price movements (not initial observations)
// for a listing inside a trailing window.
func (r *PriceChangeRepository) ChangeCountSince(ctx context.Context, externalID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PriceChange{}).
		Where("external_id = ? AND recorded_at >= ?", externalID, since).
		Where("change_type IN ?", []string{models.ChangeIncreased, models.ChangeDecreased}).
		Count(&count).Error
	return count, err
}
