// Package metrics exposes the Prometheus instrumentation surface,
// grounded on jordanlanch-industrydb-back/pkg/metrics/metrics.go's
// promauto registration shape, adapted from its HTTP/DB/cache concerns
// to the pipeline-stage and queue concerns this platform has instead.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the platform registers.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	PipelineStageTotal    *prometheus.CounterVec
	MessagesDispatched    prometheus.Counter
	MessagesFailed        prometheus.Counter
	MessagesRescheduled   *prometheus.CounterVec
	RateLimiterRejections prometheus.Counter
	MaterializationCursor *prometheus.GaugeVec

	ProviderSendDuration prometheus.Histogram
}

// New constructs and registers every collector.
func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		PipelineStageTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stage_outcomes_total",
				Help: "Outcomes of each compliance-pipeline stage",
			},
			[]string{"stage", "outcome"},
		),
		MessagesDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "messages_dispatched_total",
			Help: "Total number of messages successfully dispatched to the provider",
		}),
		MessagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "messages_failed_total",
			Help: "Total number of messages that reached FAILED",
		}),
		MessagesRescheduled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_rescheduled_total",
				Help: "Total number of reschedules, by reason",
			},
			[]string{"reason"},
		),
		RateLimiterRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rate_limiter_rejections_total",
			Help: "Total number of TryAcquire calls that were rejected",
		}),
		MaterializationCursor: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "campaign_materialization_cursor_position",
				Help: "Messages materialized as of the last committed materialization cursor, by campaign",
			},
			[]string{"campaign_id"},
		),
		ProviderSendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "provider_send_duration_seconds",
			Help:    "Latency of outbound ProviderClient.Send calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Middleware instruments every request through a chi router.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		status := strconv.Itoa(ww.status)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RecordStage records a pipeline-stage outcome.
func (m *Metrics) RecordStage(stage, outcome string) {
	m.PipelineStageTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordReschedule records a reschedule, by reason (quiet_hours, rate_limit, retry).
func (m *Metrics) RecordReschedule(reason string) {
	m.MessagesRescheduled.WithLabelValues(reason).Inc()
}

// SetMaterializationCursor records how many messages had been
// materialized when the campaign's cursor was last committed.
func (m *Metrics) SetMaterializationCursor(campaignID int, position float64) {
	m.MaterializationCursor.WithLabelValues(strconv.Itoa(campaignID)).Set(position)
}
