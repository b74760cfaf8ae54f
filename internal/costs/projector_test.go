package costs

import (
	"math"
	"testing"
	"time"

	"rentradar/internal/models"
)

func day(now time.Time, offset int) string {
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}

func TestProjectNoHistoryUsesDefaults(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	projections := Project(nil, 3, now)
	if len(projections) != 3 {
		t.Fatalf("expected 3 projections, got %d", len(projections))
	}
	for i, p := range projections {
		if p.ProjectedDailyCost != 5.0 {
			t.Errorf("day %d: projected daily = %v, want default 5.0", i+1, p.ProjectedDailyCost)
		}
		if p.ProjectedMonthlyCost != 150.0 {
			t.Errorf("day %d: projected monthly = %v, want 150.0", i+1, p.ProjectedMonthlyCost)
		}
		// default stddev 1.0 is exactly 20% of mean 5.0, just outside HIGH
		if p.Confidence != ConfidenceMedium {
			t.Errorf("day %d: confidence = %q, want %q", i+1, p.Confidence, ConfidenceMedium)
		}
	}
	if projections[0].Date != day(now, 1) {
		t.Errorf("first projection date = %s, want %s", projections[0].Date, day(now, 1))
	}
}

func TestProjectFlatHistory(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	var history []models.CostLedgerEntry
	for offset := -13; offset <= 0; offset++ {
		history = append(history, models.CostLedgerEntry{
			Date:          day(now, offset),
			EstimatedCost: 10.0,
		})
	}

	projections := Project(history, 7, now)
	for _, p := range projections {
		if p.ProjectedDailyCost != 10.0 {
			t.Errorf("%s: projected daily = %v, want 10.0 (flat history, trend 1)", p.Date, p.ProjectedDailyCost)
		}
		if p.ProjectedMonthlyCost != 300.0 {
			t.Errorf("%s: projected monthly = %v, want 300.0", p.Date, p.ProjectedMonthlyCost)
		}
		if p.Confidence != ConfidenceHigh {
			t.Errorf("%s: confidence = %q, want HIGH for zero variance", p.Date, p.Confidence)
		}
	}
}

func TestProjectTrendCompoundsWeekly(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	// Prior week at 10/day, last week at 20/day: trend ratio 2.
	var history []models.CostLedgerEntry
	for offset := -13; offset <= -7; offset++ {
		history = append(history, models.CostLedgerEntry{Date: day(now, offset), EstimatedCost: 10})
	}
	for offset := -6; offset <= 0; offset++ {
		history = append(history, models.CostLedgerEntry{Date: day(now, offset), EstimatedCost: 20})
	}

	projections := Project(history, 14, now)

	mean := 15.0
	day7 := projections[6].ProjectedDailyCost
	want7 := math.Round(mean*2*100) / 100
	if day7 != want7 {
		t.Errorf("day 7 projection = %v, want mean*trend = %v", day7, want7)
	}
	day14 := projections[13].ProjectedDailyCost
	want14 := math.Round(mean*4*100) / 100
	if day14 != want14 {
		t.Errorf("day 14 projection = %v, want mean*trend^2 = %v", day14, want14)
	}
}

func TestProjectConfidenceLabels(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		costs []float64
		want  string
	}{
		{"tight history", []float64{10, 10, 10, 10.5, 9.5, 10, 10}, ConfidenceHigh},
		{"wild history", []float64{1, 30, 2, 25, 1, 28, 3}, ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var history []models.CostLedgerEntry
			for i, cost := range tt.costs {
				history = append(history, models.CostLedgerEntry{
					Date:          day(now, -len(tt.costs)+i+1),
					EstimatedCost: cost,
				})
			}
			projections := Project(history, 1, now)
			if projections[0].Confidence != tt.want {
				t.Errorf("confidence = %q, want %q", projections[0].Confidence, tt.want)
			}
		})
	}
}

func TestProjectZeroDays(t *testing.T) {
	if got := Project(nil, 0, time.Now()); got != nil {
		t.Errorf("expected nil for daysAhead=0, got %v", got)
	}
}
