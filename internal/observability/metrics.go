package observability

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics mirrors the teacher's pattern of package-level prometheus
// collectors registered once at init (see internal/websocket/metrics.go):
// gauges for session counts, counters for completed/cancelled/expired
// syncs, and a histogram for delta payload chunk sizes.
var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "peersync_active_sessions",
		Help: "Current number of in-flight sync sessions",
	})
	SessionsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peersync_sessions_completed_total",
		Help: "Total sync sessions reaching a terminal state",
	}, []string{"outcome"}) // done, cancelled, expired
	DeltaChunkBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "peersync_delta_chunk_bytes",
		Help:    "Serialized byte size of emitted sync-delta payloads",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
	StorageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peersync_storage_failures_total",
		Help: "Total storage operations that failed after the circuit breaker",
	}, []string{"op"})
	CandidatesThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peersync_candidates_throttled_total",
		Help: "Sync candidates dropped by the per-space rate limiter",
	})
)

func init() {
	prometheus.MustRegister(ActiveSessions, SessionsCompleted, DeltaChunkBytes, StorageFailures, CandidatesThrottled)
}
