package orchestrator

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report pipeline activity.
type Metrics struct {
	stageDuration    *prometheus.HistogramVec
	stageFailures    *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. Created once so repeated orchestrator
// construction cannot trigger duplicate registration panics.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance on the provided registerer.
// Tests pass a fresh registry; registration errors other than
// AlreadyRegistered panic, matching promauto semantics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mira",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mira",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Total number of stage executions that failed.",
		},
		[]string{"stage", "reason"},
	)
	requestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mira",
			Subsystem: "pipeline",
			Name:      "requests_in_flight",
			Help:      "Number of messages currently moving through the pipeline.",
		},
	)

	for _, collector := range []prometheus.Collector{stageDuration, stageFailures, requestsInFlight} {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector {
				case prometheus.Collector(stageDuration):
					stageDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case prometheus.Collector(stageFailures):
					stageFailures = already.ExistingCollector.(*prometheus.CounterVec)
				case prometheus.Collector(requestsInFlight):
					requestsInFlight = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		stageDuration:    stageDuration,
		stageFailures:    stageFailures,
		requestsInFlight: requestsInFlight,
	}
}

// ObserveStage records the time spent in a stage with the outcome label.
func (m *Metrics) ObserveStage(stage, status string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

// IncStageFailure increments the failure counter for the stage and reason.
func (m *Metrics) IncStageFailure(stage, reason string) {
	if m == nil || m.stageFailures == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage, reason).Inc()
}

// IncInFlight marks a request as active.
func (m *Metrics) IncInFlight() {
	if m == nil || m.requestsInFlight == nil {
		return
	}
	m.requestsInFlight.Inc()
}

// DecInFlight marks a request as finished.
func (m *Metrics) DecInFlight() {
	if m == nil || m.requestsInFlight == nil {
		return
	}
	m.requestsInFlight.Dec()
}
