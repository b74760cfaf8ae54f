package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"rentradar/internal/models"
)

// ErrSourceExists is returned when onboarding a URL that is already registered.
var ErrSourceExists = errors.New("source with this URL already exists")

// SourceRepository handles the durable catalog of scrape targets.
type SourceRepository struct {
	db *gorm.DB
}

func NewSourceRepository(db *gorm.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Create registers a new source. Exactly one row per URL.
func (r *SourceRepository) Create(ctx context.Context, src *models.Source) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Source{}).
		Where("url = ?", src.URL).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSourceExists
	}
	return r.db.WithContext(ctx).Create(src).Error
}

func (r *SourceRepository) FindByID(ctx context.Context, id uint) (*models.Source, error) {
	var src models.Source
	if err := r.db.WithContext(ctx).First(&src, id).Error; err != nil {
		return nil, err
	}
	return &src, nil
}

// FindAll returns sources with pagination and optional search/region filter.
func (r *SourceRepository) FindAll(ctx context.Context, limit, page int, query, region string) ([]models.Source, int64, error) {
	var sources []models.Source
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Source{})

	if query != "" {
		search := "%" + query + "%"
		db = db.Where("name LIKE ? OR url LIKE ?", search, search)
	}
	if region != "" {
		db = db.Where("region = ?", region)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	err := db.Order("id ASC").Limit(limit).Offset((page - 1) * limit).Find(&sources).Error
	return sources, total, err
}

// FindDue returns active sources whose next visit is overdue and which have
// no pending or processing job yet. Used by the release pass.
func (r *SourceRepository) FindDue(ctx context.Context, limit int) ([]models.Source, error) {
	var sources []models.Source
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("next_scrape <= ?", time.Now()).
		Where("id NOT IN (?)", r.db.Model(&models.ScrapeJob{}).
			Select("source_id").
			Where("status IN ?", []string{models.JobPending, models.JobProcessing})).
		Order("next_scrape ASC").
		Limit(limit).
		Find(&sources).Error
	return sources, err
}

// Reactivate lifts a quarantine: resets the failure streak and clears the
// recorded error so the release pass picks the source up again.
func (r *SourceRepository) Reactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Source{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":               true,
			"consecutive_failures": 0,
			"last_error":           "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
