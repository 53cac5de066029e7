package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful fetches and investigations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed fetches and investigations.
	OutcomeError = "error"
)

// Cache event labels.
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheInvalidate = "invalidate"
)

// Stream frame labels.
const (
	FramePhase     = "phase"
	FrameInfo      = "info"
	FrameComplete  = "complete"
	FrameError     = "error"
	FrameMalformed = "malformed"
)

var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinops",
			Name:      "fetches_total",
			Help:      "Dashboard endpoint fetches issued to clinops-core, partitioned by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	fetchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clinops",
			Name:      "fetch_seconds",
			Help:      "Dashboard endpoint fetch latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinops",
			Name:      "cache_events_total",
			Help:      "Response cache activity, partitioned by event (hit, miss, invalidate).",
		},
		[]string{"event"},
	)

	investigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinops",
			Name:      "investigations_total",
			Help:      "Total number of investigations run, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	investigationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clinops",
			Name:      "investigation_seconds",
			Help:      "Investigation wall time from start to terminal callback, in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	streamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinops",
			Name:      "stream_frames_total",
			Help:      "Investigation stream frames received, partitioned by kind.",
		},
		[]string{"kind"},
	)
)

// Register attaches all collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fetchesTotal,
		fetchDurationSeconds,
		cacheEventsTotal,
		investigationsTotal,
		investigationDurationSeconds,
		streamFramesTotal,
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

// ObserveFetch records one network fetch of a dashboard endpoint.
func ObserveFetch(endpoint string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	fetchesTotal.WithLabelValues(endpoint, label).Inc()
	if duration < 0 {
		duration = 0
	}
	fetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveCacheEvent counts a response-cache hit, miss, or invalidation.
func ObserveCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

// ObserveInvestigation records an investigation duration and outcome label.
func ObserveInvestigation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	investigationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	investigationDurationSeconds.Observe(duration.Seconds())
}

// ObserveStreamFrame counts one received stream frame by kind.
func ObserveStreamFrame(kind string) {
	streamFramesTotal.WithLabelValues(kind).Inc()
}
