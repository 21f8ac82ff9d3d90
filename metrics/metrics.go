// Package metrics exposes Prometheus gauges/counters for the
// dispatcher's internal queues and the slot state machine, grounded
// on cuemby-warren's pkg/metrics package (same prometheus.NewGaugeVec/
// MustRegister/promhttp.Handler shape, generalized from container and
// Raft metrics to offer-cache depth, slot phase counts, and lease
// commit latency).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OfferCacheDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arangodb_framework_offer_cache_depth",
			Help: "Number of offers currently held awaiting a tick's checkOutstandingOffers step",
		},
	)

	SlotPhaseTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arangodb_framework_slot_phase_total",
			Help: "Number of slots by role and phase",
		},
		[]string{"role", "phase"},
	)

	LeaseCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arangodb_framework_lease_commit_duration_seconds",
			Help:    "Time taken to commit a store.Lease, per dispatcher tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	LeaseStaleRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arangodb_framework_lease_stale_retries_total",
			Help: "Total number of store.ErrStaleState retries",
		},
	)

	TasksReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arangodb_framework_tasks_reconciled_total",
			Help: "Total number of reconciliations issued, by kind: explicit counts tasks, implicit counts full reconcile requests",
		},
		[]string{"kind"},
	)

	RestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arangodb_framework_restarts_total",
			Help: "Total number of restart flows driven to completion, by mode",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(OfferCacheDepth)
	prometheus.MustRegister(SlotPhaseTotal)
	prometheus.MustRegister(LeaseCommitDuration)
	prometheus.MustRegister(LeaseStaleRetriesTotal)
	prometheus.MustRegister(TasksReconciledTotal)
	prometheus.MustRegister(RestartsTotal)
}

// Handler serves the registered metrics in the Prometheus exposition
// format, mounted on the admin HTTP mux's /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer mirrors cuemby-warren's metrics.Timer: a small helper for
// observing a histogram's duration around a call site.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}
