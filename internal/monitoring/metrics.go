package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the scheduler core.
var (
	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentradar_jobs_claimed_total",
		Help: "Total number of jobs handed to extraction workers.",
	})

	ClaimBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentradar_claim_batches_total",
		Help: "Total number of claim calls served.",
	})

	OutcomesReported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentradar_outcomes_reported_total",
		Help: "Total number of job outcomes applied, by result.",
	}, []string{"result"})

	SourcesQuarantined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentradar_sources_quarantined_total",
		Help: "Total number of sources auto-deactivated after repeated failures.",
	})

	PriceChangesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentradar_price_changes_recorded_total",
		Help: "Total number of price changelog entries written.",
	})

	JobsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentradar_jobs_reaped_total",
		Help: "Total number of expired processing leases returned to pending.",
	})

	PendingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rentradar_jobs_pending",
		Help: "Current number of pending jobs.",
	})

	ProcessingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rentradar_jobs_processing",
		Help: "Current number of claimed jobs.",
	})

	DailyCost = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rentradar_daily_cost_usd",
		Help: "Estimated AI spend accumulated for the current day.",
	})
)
