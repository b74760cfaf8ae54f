package scoring

import "testing"

func TestScoreFixedPoints(t *testing.T) {
	tests := []struct {
		name        string
		days        int
		volatility  int
		successRate float64
		attempts    int
		want        int
	}{
		{"reliable fresh source", 0, 0, 1.0, 0, 40},
		{"stale volatile source", 10, 80, 0.6, 1, 104},
		{"never scraped", 99, 0, 0, 0, 90},
		{"time cap at 30", 6, 0, 0.8, 0, 80},
		{"failing source penalty", 0, 0, 0.2, 4, 40},
		{"volatility floor division", 1, 5, 0.8, 0, 56},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.days, tt.volatility, tt.successRate, tt.attempts)
			if got != tt.want {
				t.Errorf("Score(%d, %d, %v, %d) = %d, want %d",
					tt.days, tt.volatility, tt.successRate, tt.attempts, got, tt.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	first := Score(7, 42, 0.65, 2)
	for i := 0; i < 100; i++ {
		if got := Score(7, 42, 0.65, 2); got != first {
			t.Fatalf("score not deterministic: got %d then %d", first, got)
		}
	}
}

func TestScoreMonotonicInStaleness(t *testing.T) {
	prev := Score(0, 50, 0.8, 1)
	for days := 1; days <= 120; days++ {
		got := Score(days, 50, 0.8, 1)
		if got < prev {
			t.Fatalf("score decreased from %d to %d at days=%d", prev, got, days)
		}
		prev = got
	}
}

func TestScoreMonotonicInVolatility(t *testing.T) {
	prev := Score(3, 0, 0.8, 1)
	for vol := 1; vol <= 100; vol++ {
		got := Score(3, vol, 0.8, 1)
		if got < prev {
			t.Fatalf("score decreased from %d to %d at volatility=%d", prev, got, vol)
		}
		prev = got
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{120, TierPremium},
		{70, TierPremium},
		{69, TierStandard},
		{40, TierStandard},
		{39, TierEconomy},
		{0, TierEconomy},
	}
	for _, tt := range tests {
		if got := TierFor(tt.score); got != tt.want {
			t.Errorf("TierFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
