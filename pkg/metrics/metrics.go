package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess    = "success"
	OutcomeTimeout    = "timeout"
	OutcomeUpstream   = "upstream_error"
	OutcomeClientGone = "client_gone"
	ModeJSON          = "json"
	ModeStream        = "stream"
)

var (
	once sync.Once

	// RelayRequestsTotal counts relayed chat requests by response mode and outcome.
	RelayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mealrelay",
		Subsystem: "relay",
		Name:      "requests_total",
		Help:      "Total number of chat requests relayed to the webhook.",
	}, []string{"mode", "outcome"})

	UpstreamDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mealrelay",
		Subsystem: "relay",
		Name:      "upstream_duration_seconds",
		Help:      "Latency of the webhook call.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"outcome"})

	StreamsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mealrelay",
		Subsystem: "relay",
		Name:      "streams_in_flight",
		Help:      "Number of SSE streams currently open.",
	})

	DeltaEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mealrelay",
		Subsystem: "relay",
		Name:      "delta_events_total",
		Help:      "Total number of delta events written to clients.",
	})
)

// Register registers relay metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RelayRequestsTotal,
			UpstreamDurationSeconds,
			StreamsInFlight,
			DeltaEventsTotal,
		)
	})
}
