package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	guardDecisionsTotal    *prometheus.CounterVec
	uploadRequestsTotal    *prometheus.CounterVec
	uploadRejectedTotal    *prometheus.CounterVec
	uploadLatencySeconds   prometheus.Histogram
	realtimeClientsActive  prometheus.Gauge
	realtimeEventsTotal    *prometheus.CounterVec
	leaveTransitionsTotal  *prometheus.CounterVec
	feePaymentsTotal       *prometheus.CounterVec
	provisioningFailsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		guardDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Route guard outcomes by required role and decision.",
		}, []string{"role", "decision"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_upload_requests_total",
			Help: "Uploads accepted by the asset host, by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_upload_rejected_total",
			Help: "Uploads rejected, by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		realtimeClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_realtime_clients_active",
			Help: "Number of open realtime streams.",
		})

		realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_realtime_events_total",
			Help: "Realtime events delivered to the local hub, by kind.",
		}, []string{"kind"})

		leaveTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_leave_transitions_total",
			Help: "Leave request status transitions.",
		}, []string{"from", "to"})

		feePaymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_fee_payments_total",
			Help: "Fee payments recorded, by status.",
		}, []string{"status"})

		provisioningFailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_partial_failures_total",
			Help: "Staff provisioning or removal that stopped half way.",
		}, []string{"operation"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			guardDecisionsTotal,
			uploadRequestsTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			realtimeClientsActive,
			realtimeEventsTotal,
			leaveTransitionsTotal,
			feePaymentsTotal,
			provisioningFailsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// GuardDecisions exposes the route guard outcome counter.
func GuardDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return guardDecisionsTotal
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

// RealtimeClientsActive tracks open SSE streams.
func RealtimeClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return realtimeClientsActive
}

func RealtimeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsTotal
}

func LeaveTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return leaveTransitionsTotal
}

func FeePayments() *prometheus.CounterVec {
	RegisterMetrics()
	return feePaymentsTotal
}

// PartialFailures counts two-step staff operations that did not complete.
func PartialFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return provisioningFailsTotal
}
