package models

import "time"

// Price change types. `unchanged` observations are never written; the
// constant exists because ingest payloads may still carry it.
const (
	ChangeInitial   = "initial"
	ChangeIncreased = "increased"
	ChangeDecreased = "decreased"
	ChangeUnchanged = "unchanged"
)

// PriceChange is one row of the append-only per-listing price changelog.
// It is the sole input to the volatility signal.
type PriceChange struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ExternalID string    `gorm:"column:external_id;size:255;index:idx_price_changes_external,priority:1" json:"external_id"`
	Price      float64   `gorm:"column:price" json:"price"`
	ChangeType string    `gorm:"column:change_type;size:20" json:"change_type"`
	RecordedAt time.Time `gorm:"column:recorded_at;autoCreateTime;index:idx_price_changes_external,priority:2" json:"recorded_at"`
}

func (PriceChange) TableName() string {
	return "price_changes"
}
