package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	workflowTransitionsTotal *prometheus.CounterVec

	uploadRequestsTotal  *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram

	notificationsPublishedTotal *prometheus.CounterVec
	notificationStreamsActive   prometheus.Gauge

	portfolioCacheTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portfolio_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		workflowTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_workflow_transitions_total",
			Help: "Assignment status transitions by action and target status.",
		}, []string{"action", "from", "to"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_uploads_total",
			Help: "Accepted artifact uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_uploads_rejected_total",
			Help: "Rejected artifact uploads by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_notifications_published_total",
			Help: "Notifications dispatched by type.",
		}, []string{"type"})

		notificationStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_notification_streams_active",
			Help: "Open server-sent event notification streams.",
		})

		portfolioCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_public_cache_total",
			Help: "Public portfolio cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			workflowTransitionsTotal,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
			notificationsPublishedTotal, notificationStreamsActive,
			portfolioCacheTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// WorkflowTransitions counts assignment status changes.
func WorkflowTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowTransitionsTotal
}

func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// NotificationsPublishedTotal counts dispatched notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// NotificationStreamsActive tracks open SSE streams.
func NotificationStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return notificationStreamsActive
}

// PortfolioCache counts public portfolio cache hits and misses.
func PortfolioCache() *prometheus.CounterVec {
	RegisterMetrics()
	return portfolioCacheTotal
}
