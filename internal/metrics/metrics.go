package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deskbook"

var (
	once sync.Once

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Count of booking service calls by operation and outcome.",
		},
		[]string{"op", "status"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of booking service calls.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"op"},
	)

	gatewayCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_cache_hits_total",
			Help:      "Count of desk lists served from the redis cache.",
		},
	)

	directoryRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_refresh_total",
			Help:      "Count of desk directory refreshes by outcome.",
		},
		[]string{"status"},
	)

	modalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modal_transitions_total",
			Help:      "Count of selection state transitions.",
		},
		[]string{"from", "to"},
	)

	staleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Count of booking service results ignored because the modal had moved on.",
		},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live browser sessions.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			gatewayRequests,
			gatewayDuration,
			gatewayCacheHits,
			directoryRefresh,
			modalTransitions,
			staleResults,
			activeSessions,
			httpRequests,
		)
	})
}

func ObserveGateway(op string, ok bool, elapsed time.Duration) {
	gatewayRequests.WithLabelValues(op, outcome(ok)).Inc()
	gatewayDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func IncGatewayCacheHit() {
	gatewayCacheHits.Inc()
}

func IncDirectoryRefresh(ok bool) {
	directoryRefresh.WithLabelValues(outcome(ok)).Inc()
}

func IncModalTransition(from, to string) {
	modalTransitions.WithLabelValues(from, to).Inc()
}

func IncStaleResult() {
	staleResults.Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
