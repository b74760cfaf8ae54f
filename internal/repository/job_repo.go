package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentradar/internal/models"
	"rentradar/internal/scoring"
)

// JobRepository handles the scrape job queue.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) FindByID(ctx context.Context, id uint) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Enqueue inserts a pending job for a source unless one is already pending
// or processing; in that case the existing job is returned untouched. The
// check and insert run under a lock on the source row, so two scheduler
// replicas releasing the same source (or a release pass racing a feedback
// re-enqueue, which holds the same lock) cannot both insert.
func (r *JobRepository) Enqueue(ctx context.Context, sourceID uint, externalID string, score int) (*models.ScrapeJob, error) {
	var job *models.ScrapeJob
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := tx
		if tx.Dialector.Name() == "mysql" {
			lock = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var src models.Source
		if err := lock.First(&src, sourceID).Error; err != nil {
			return err
		}

		var existing models.ScrapeJob
		err := tx.Where("source_id = ? AND status IN ?", sourceID, []string{models.JobPending, models.JobProcessing}).
			Order("id DESC").
			First(&existing).Error
		if err == nil {
			job = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		job = &models.ScrapeJob{
			SourceID:      sourceID,
			ExternalID:    externalID,
			Status:        models.JobPending,
			PriorityScore: score,
		}
		return tx.Create(job).Error
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// claimRow carries the joined columns needed to build a descriptor.
type claimRow struct {
	ID            uint
	ExternalID    string
	PriorityScore int
	SourceID      uint
	URL           string
	Name          string
}

// ClaimBatch selects up to n pending jobs ordered by cached score (ties:
// oldest first) and marks them processing in the same transaction, so two
// concurrent callers never claim the same row. On MySQL the candidate rows
// are locked with FOR UPDATE SKIP LOCKED; the per-row conditional UPDATE
// keeps exclusivity on backends without row locks (sqlite in tests).
func (r *JobRepository) ClaimBatch(ctx context.Context, n int, region string) ([]models.JobDescriptor, error) {
	if n <= 0 {
		return nil, nil
	}

	var descriptors []models.JobDescriptor
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.ScrapeJob{}).
			Select("scrape_jobs.id, scrape_jobs.external_id, scrape_jobs.priority_score, scrape_jobs.source_id, sources.url, sources.name").
			Joins("JOIN sources ON sources.id = scrape_jobs.source_id").
			Where("scrape_jobs.status = ?", models.JobPending).
			Where("sources.active = ?", true)
		if region != "" {
			q = q.Where("sources.region = ?", region)
		}
		q = q.Order("scrape_jobs.priority_score DESC").
			Order("scrape_jobs.created_at ASC").
			Limit(n)
		if tx.Dialector.Name() == "mysql" {
			q = q.Clauses(clause.Locking{
				Strength: "UPDATE",
				Table:    clause.Table{Name: "scrape_jobs"},
				Options:  "SKIP LOCKED",
			})
		}

		var rows []claimRow
		if err := q.Scan(&rows).Error; err != nil {
			return err
		}

		now := time.Now()
		for _, row := range rows {
			res := tx.Model(&models.ScrapeJob{}).
				Where("id = ? AND status = ?", row.ID, models.JobPending).
				Updates(map[string]interface{}{
					"status":     models.JobProcessing,
					"started_at": now,
					"attempts":   gorm.Expr("attempts + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Another claimer won the row between select and update.
				continue
			}
			descriptors = append(descriptors, models.JobDescriptor{
				JobID:      row.ID,
				ExternalID: row.ExternalID,
				URL:        row.URL,
				SourceName: row.Name,
				Score:      row.PriorityScore,
				Tier:       scoring.TierFor(row.PriorityScore),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return descriptors, nil
}

// ReapExpired returns jobs stuck in processing past the lease timeout to
// pending so another worker can reclaim them. Attempts stay as claimed.
func (r *JobRepository) ReapExpired(ctx context.Context, leaseTimeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-leaseTimeout)
	res := r.db.WithContext(ctx).Model(&models.ScrapeJob{}).
		Where("status = ? AND started_at < ?", models.JobProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     models.JobPending,
			"started_at": nil,
		})
	return res.RowsAffected, res.Error
}

// RescorePending recomputes the cached priority score of every pending job
// from the current source metrics. Run nightly so stale queues re-rank.
func (r *JobRepository) RescorePending(ctx context.Context) (int, error) {
	type pendingRow struct {
		ID              uint
		Attempts        int
		LastScraped     *time.Time
		VolatilityScore int
		SuccessRate     float64
	}
	var rows []pendingRow
	err := r.db.WithContext(ctx).Model(&models.ScrapeJob{}).
		Select("scrape_jobs.id, scrape_jobs.attempts, sources.last_scraped, sources.volatility_score, sources.success_rate").
		Joins("JOIN sources ON sources.id = scrape_jobs.source_id").
		Where("scrape_jobs.status = ?", models.JobPending).
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated := 0
	for _, row := range rows {
		src := models.Source{LastScraped: row.LastScraped}
		score := scoring.Score(src.DaysSinceLastScrape(now), row.VolatilityScore, row.SuccessRate/100, row.Attempts)
		res := r.db.WithContext(ctx).Model(&models.ScrapeJob{}).
			Where("id = ? AND status = ?", row.ID, models.JobPending).
			Update("priority_score", score)
		if res.Error != nil {
			return updated, res.Error
		}
		updated += int(res.RowsAffected)
	}
	return updated, nil
}

// CountByStatus feeds the queue depth gauges.
func (r *JobRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ScrapeJob{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
