package models

import "time"

// Job statuses.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ScrapeJob is one queued unit of work bound to a Source. At most one
// worker ever holds a job in `processing`; the claim path guarantees it.
type ScrapeJob struct {
	ID             uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SourceID       uint       `gorm:"column:source_id;index:idx_scrape_jobs_source" json:"source_id"`
	ExternalID     string     `gorm:"column:external_id;size:255" json:"external_id"`
	Status         string     `gorm:"column:status;size:30;index:idx_scrape_jobs_status_score,priority:1" json:"status"`
	PriorityScore  int        `gorm:"column:priority_score;default:0;index:idx_scrape_jobs_status_score,priority:2" json:"priority_score"`
	Attempts       int        `gorm:"column:attempts;default:0" json:"attempts"`
	SuccessRate    float64    `gorm:"column:success_rate;default:0" json:"success_rate"`
	LastSuccessful *time.Time `gorm:"column:last_successful_scrape" json:"last_successful_scrape"`
	AvgDurationMs  int        `gorm:"column:avg_duration_ms;default:0" json:"avg_duration_ms"`
	StartedAt      *time.Time `gorm:"column:started_at" json:"started_at"`
	FinishedAt     *time.Time `gorm:"column:finished_at" json:"finished_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ScrapeJob) TableName() string {
	return "scrape_jobs"
}

// JobDescriptor is what a claim hands to an extraction worker.
type JobDescriptor struct {
	JobID      uint   `json:"job_id"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	Score      int    `json:"score"`
	Tier       string `json:"tier"`
}
