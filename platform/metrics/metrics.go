// Package metrics exposes Prometheus instruments for the HTTP layer and the
// lead conversation engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	messagesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_messages_ingested_total",
			Help: "Inbound messages persisted to a lead conversation",
		},
	)

	messagesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_messages_skipped_total",
			Help: "Inbound messages discarded before persistence",
		},
		[]string{"reason"},
	)

	messagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_messages_sent_total",
			Help: "Outbound send attempts by result",
		},
		[]string{"result"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leads_gateway_request_duration_seconds",
			Help:    "Latency of calls to the messaging gateway",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	ingestFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_ingest_failures_total",
			Help: "Inbound messages that failed after reaching the pipeline",
		},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_transitions_total",
			Help: "Lead lifecycle changes by timeline kind",
		},
		[]string{"kind"},
	)

	realtimePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_published_total",
			Help: "Realtime events handed to the broadcaster",
		},
		[]string{"event"},
	)

	realtimeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Realtime deliveries dropped because a subscriber buffer was full",
		},
	)

	realtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Currently connected realtime subscribers",
		},
	)
)

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordIngested() {
	messagesIngested.Inc()
}

func RecordSkipped(reason string) {
	messagesSkipped.WithLabelValues(reason).Inc()
}

func RecordSend(result string) {
	messagesSent.WithLabelValues(result).Inc()
}

func ObserveGateway(op string, elapsed time.Duration) {
	gatewayDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func RecordIngestFailure() {
	ingestFailures.Inc()
}

func RecordTransition(kind string) {
	transitions.WithLabelValues(kind).Inc()
}

func RecordPublished(event string) {
	realtimePublished.WithLabelValues(event).Inc()
}

func RecordDropped() {
	realtimeDropped.Inc()
}

func SubscriberConnected() {
	realtimeSubscribers.Inc()
}

func SubscriberDisconnected() {
	realtimeSubscribers.Dec()
}
