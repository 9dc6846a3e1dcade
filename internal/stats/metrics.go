package stats

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pcftraffic"

// Metrics mirrors Collector events into Prometheus collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	failures        *prometheus.CounterVec
	bursts          prometheus.Counter
	packets         prometheus.Counter
	waitSeconds     prometheus.Histogram
	requestDuration prometheus.Histogram
}

// NewMetrics creates the run metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests that received a response, by method and status code.",
		}, []string{"method", "code"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "HTTP requests that failed before a response, by reason.",
		}, []string{"reason"}),
		bursts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bursts_total",
			Help:      "Completed request bursts.",
		}),
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Requests sent as part of completed bursts.",
		}),
		waitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wait_seconds",
			Help:      "Randomized waits between request cycles.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 300, 600, 1800, 3600},
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Round trip time of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.requests, m.failures, m.bursts, m.packets, m.waitSeconds, m.requestDuration)
	return m
}

func (m *Metrics) observeRequest(method string, status int, latency time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.Observe(latency.Seconds())
}

// Handler exposes the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
