package scoring

// Resource tiers handed to extraction workers. The scheduler itself is
// model-agnostic; the tier only tells the worker which hosted model class
// a job is worth.
const (
	TierPremium  = "premium"
	TierStandard = "standard"
	TierEconomy  = "economy"
)

// ScoreBase is the starting point every job gets before adjustments.
const ScoreBase = 50

// Score ranks a source for scraping. Higher means scrape sooner.
//
// daysSinceLastScrape: whole days since the last visit (99 for never).
// volatilityScore: 0-100 signal of how often prices change.
// successRate: 0.0-1.0 fraction of successful attempts.
// attempts: total attempts so far.
//
// Deterministic and side-effect-free.
func Score(daysSinceLastScrape, volatilityScore int, successRate float64, attempts int) int {
	timeComponent := daysSinceLastScrape * 5
	if timeComponent > 30 {
		timeComponent = 30
	}
	if timeComponent < 0 {
		timeComponent = 0
	}

	if volatilityScore < 0 {
		volatilityScore = 0
	} else if volatilityScore > 100 {
		volatilityScore = 100
	}
	volatilityComponent := volatilityScore * 30 / 100

	var reliabilityComponent int
	switch {
	case successRate > 0.90:
		reliabilityComponent = -10
	case successRate >= 0.50:
		reliabilityComponent = 0
	default:
		reliabilityComponent = 10
	}
	if attempts > 3 && successRate < 0.50 {
		reliabilityComponent -= 20
	}

	return ScoreBase + timeComponent + volatilityComponent + reliabilityComponent
}

// TierFor maps a priority score to the resource tier string passed to the
// extraction worker.
func TierFor(score int) string {
	switch {
	case score >= 70:
		return TierPremium
	case score >= 40:
		return TierStandard
	default:
		return TierEconomy
	}
}
