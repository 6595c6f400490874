package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (bad input or store issues).
	OutcomeError = "error"
)

var (
	ingestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inquest",
			Name:      "ingests_total",
			Help:      "Total number of signal batches ingested, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	signalsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inquest",
			Name:      "signals_skipped_total",
			Help:      "Evidence records dropped during ingestion for failing validation.",
		},
	)

	recomputeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inquest",
			Name:      "recompute_seconds",
			Help:      "Graph build plus path enumeration latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	briefingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inquest",
			Name:      "briefings_total",
			Help:      "Total number of briefings derived.",
		},
	)
)

// Register attaches the engine's collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ingestsTotal,
		signalsSkippedTotal,
		recomputeSeconds,
		briefingsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngest records an ingest outcome and its recompute duration.
func ObserveIngest(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	ingestsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	recomputeSeconds.Observe(duration.Seconds())
}

// ObserveSkippedSignals counts records dropped during ingestion.
func ObserveSkippedSignals(n int) {
	if n > 0 {
		signalsSkippedTotal.Add(float64(n))
	}
}

// ObserveBriefing counts a derived briefing.
func ObserveBriefing() {
	briefingsTotal.Inc()
}
