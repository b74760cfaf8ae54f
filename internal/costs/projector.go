package costs

import (
	"math"
	"time"

	"rentradar/internal/models"
)

// Confidence labels for projections.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Defaults used when there is no spend history yet.
const (
	defaultMean   = 5.0
	defaultStdDev = 1.0
)

const trailingWindowDays = 14

// Projection is one forecast day. Advisory output only; it never gates
// scheduling.
type Projection struct {
	Date                 string  `json:"date"`
	ProjectedDailyCost   float64 `json:"projected_daily_cost"`
	ProjectedMonthlyCost float64 `json:"projected_monthly_cost"`
	Confidence           string  `json:"confidence"`
}

// Project forecasts daily spend for the next daysAhead days from the
// trailing two weeks of ledger history. The trend ratio compares the last
// seven days against the seven before; growth compounds weekly.
func Project(history []models.CostLedgerEntry, daysAhead int, now time.Time) []Projection {
	if daysAhead <= 0 {
		return nil
	}

	windowStart := now.AddDate(0, 0, -trailingWindowDays)
	weekStart := now.AddDate(0, 0, -7)

	var window, lastWeek, priorWeek []float64
	for _, entry := range history {
		day, err := time.Parse("2006-01-02", entry.Date)
		if err != nil {
			continue
		}
		if day.Before(windowStart) || day.After(now) {
			continue
		}
		window = append(window, entry.EstimatedCost)
		if day.After(weekStart) {
			lastWeek = append(lastWeek, entry.EstimatedCost)
		} else {
			priorWeek = append(priorWeek, entry.EstimatedCost)
		}
	}

	dailyMean := defaultMean
	stdDev := defaultStdDev
	if len(window) > 0 {
		dailyMean = mean(window)
		stdDev = stddev(window, dailyMean)
	}

	trend := 1.0
	if len(lastWeek) > 0 && len(priorWeek) > 0 {
		if priorMean := mean(priorWeek); priorMean > 0 {
			trend = mean(lastWeek) / priorMean
		}
	}

	confidence := ConfidenceLow
	if dailyMean > 0 {
		switch {
		case stdDev < 0.2*dailyMean:
			confidence = ConfidenceHigh
		case stdDev < 0.5*dailyMean:
			confidence = ConfidenceMedium
		}
	}

	projections := make([]Projection, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		daily := dailyMean * math.Pow(trend, float64(i)/7)
		projections = append(projections, Projection{
			Date:                 now.AddDate(0, 0, i).Format("2006-01-02"),
			ProjectedDailyCost:   round2(daily),
			ProjectedMonthlyCost: round2(daily * 30),
			Confidence:           confidence,
		})
	}
	return projections
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
