package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_http_requests_total",
			Help: "Total number of HTTP requests processed by the local API.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatclient_http_request_duration_seconds",
			Help:    "Local API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatclient_realtime_events_total",
			Help: "Total number of realtime events dispatched, by channel and event.",
		},
		[]string{"channel", "event"},
	)
	realtimeReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_realtime_reconnects_total",
			Help: "Total number of realtime gateway reconnect attempts.",
		},
	)
	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatclient_active_subscriptions",
			Help: "Number of active realtime subscriptions.",
		},
	)
	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatclient_poll_duration_seconds",
			Help:    "Duration of periodic freshness polls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"poller"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatclient_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		realtimeEventsTotal,
		realtimeReconnectsTotal,
		activeSubscriptions,
		pollDuration,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies for the local
// API.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncRealtimeEvent(channel, event string) {
	realtimeEventsTotal.WithLabelValues(channel, event).Inc()
}

func IncRealtimeReconnect() {
	realtimeReconnectsTotal.Inc()
}

func IncActiveSubscriptions() {
	activeSubscriptions.Inc()
}

func DecActiveSubscriptions() {
	activeSubscriptions.Dec()
}

func ObservePoll(poller string, d time.Duration) {
	pollDuration.WithLabelValues(poller).Observe(d.Seconds())
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
