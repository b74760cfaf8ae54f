package models

import "time"

// Cadence classes for how often a source should be revisited.
const (
	CadenceDaily   = "daily"
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
)

// Source is one external listing site to be periodically scraped.
// Sources are never hard-deleted; quarantine flips Active off instead.
type Source struct {
	ID                  uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	URL                 string     `gorm:"column:url;size:768;uniqueIndex:idx_sources_url" json:"url"`
	Name                string     `gorm:"column:name;size:255" json:"name"`
	Active              bool       `gorm:"column:active" json:"active"`
	Cadence             string     `gorm:"column:cadence;size:20;default:'weekly'" json:"cadence"`
	LastScraped         *time.Time `gorm:"column:last_scraped" json:"last_scraped"`
	NextScrape          time.Time  `gorm:"column:next_scrape;index:idx_sources_next_scrape" json:"next_scrape"`
	Priority            int        `gorm:"column:priority;default:5" json:"priority"`
	ExpectedUnits       int        `gorm:"column:expected_units;default:0" json:"expected_units"`
	Region              string     `gorm:"column:region;size:100;index:idx_sources_region" json:"region"`
	SuccessRate         float64    `gorm:"column:success_rate;default:0" json:"success_rate"`
	AvgUnitsFound       float64    `gorm:"column:avg_units_found;default:0" json:"avg_units_found"`
	VolatilityScore     int        `gorm:"column:volatility_score;default:0" json:"volatility_score"`
	LastError           string     `gorm:"column:last_error;type:text" json:"last_error"`
	ConsecutiveFailures int        `gorm:"column:consecutive_failures;default:0" json:"consecutive_failures"`
	ScrapeCount         int        `gorm:"column:scrape_count;default:0" json:"scrape_count"`
	AvgCostPerScrape    float64    `gorm:"column:avg_cost_per_scrape;default:0" json:"avg_cost_per_scrape"`
	TotalCost           float64    `gorm:"column:total_cost;default:0" json:"total_cost"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Source) TableName() string {
	return "sources"
}

// DaysSinceLastScrape feeds the priority scorer. Never-scraped sources
// report 99 so they rank ahead of everything with history.
func (s *Source) DaysSinceLastScrape(now time.Time) int {
	if s.LastScraped == nil {
		return 99
	}
	days := int(now.Sub(*s.LastScraped).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
