// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuition_http_requests_total",
			Help: "Total number of handled requests by flow and status code",
		},
		[]string{"flow", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tuition_http_request_duration_seconds",
			Help: "Duration of request handling in seconds",
		},
		[]string{"flow"},
	)

	CheckoutRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuition_checkout_rejections_total",
			Help: "Total number of checkout attempts rejected, by error code",
		},
		[]string{"code"},
	)

	CheckoutSessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuition_checkout_sessions_created_total",
			Help: "Total number of checkout redirects by payment type and session source (new or cache)",
		},
		[]string{"payment_type", "source"},
	)

	CRMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tuition_crm_request_duration_seconds",
			Help:    "Duration of CRM API calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

func RecordRequest(flow string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(flow, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
}

func RecordRejection(code string) {
	CheckoutRejections.WithLabelValues(code).Inc()
}

func RecordSession(paymentType, source string) {
	CheckoutSessionsCreated.WithLabelValues(paymentType, source).Inc()
}

// ObserveCRM matches hubspot.Observer.
func ObserveCRM(operation string, elapsed time.Duration) {
	CRMRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
