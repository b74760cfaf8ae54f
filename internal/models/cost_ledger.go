package models

import "time"

// CostLedgerEntry accumulates one calendar date of AI-extraction spend.
// All numeric columns only ever grow by additive deltas so concurrent
// writers merge instead of overwriting each other.
type CostLedgerEntry struct {
	ID                uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Date              string    `gorm:"column:date;size:10;uniqueIndex:idx_cost_ledger_date" json:"date"`
	PropertiesScraped int       `gorm:"column:properties_scraped;default:0" json:"properties_scraped"`
	AIRequests        int       `gorm:"column:ai_requests;default:0" json:"ai_requests"`
	TokensUsed        int64     `gorm:"column:tokens_used;default:0" json:"tokens_used"`
	EstimatedCost     float64   `gorm:"column:estimated_cost;default:0" json:"estimated_cost"`
	SuccessCount      int       `gorm:"column:success_count;default:0" json:"success_count"`
	RequestCount      int       `gorm:"column:request_count;default:0" json:"request_count"`
	TotalResponseMs   int64     `gorm:"column:total_response_ms;default:0" json:"total_response_ms"`
	ErrorCount        int       `gorm:"column:error_count;default:0" json:"error_count"`
	Breakdown         string    `gorm:"column:breakdown;type:longtext" json:"breakdown"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CostLedgerEntry) TableName() string {
	return "cost_ledger"
}

// SuccessRate derives the day's success percentage from the counters.
func (e *CostLedgerEntry) SuccessRate() float64 {
	if e.RequestCount == 0 {
		return 0
	}
	return float64(e.SuccessCount) / float64(e.RequestCount) * 100
}

// AvgResponseMs derives the day's mean response time from the counters.
func (e *CostLedgerEntry) AvgResponseMs() int64 {
	if e.RequestCount == 0 {
		return 0
	}
	return e.TotalResponseMs / int64(e.RequestCount)
}
