package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Export metrics
	ExportRunsTotal      *prometheus.CounterVec
	ExportRunDuration    *prometheus.HistogramVec
	ExportRunsInProgress prometheus.Gauge
	ReportPagesFetched   *prometheus.CounterVec
	ReportRowsExported   *prometheus.CounterVec
	DecodeIssues         *prometheus.CounterVec
	SinkWrites           *prometheus.CounterVec
	SinkBytes            *prometheus.CounterVec

	// External API metrics
	ExternalAPICalls    *prometheus.CounterVec
	ExternalAPIDuration *prometheus.HistogramVec
	ExternalAPIFailures *prometheus.CounterVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		ExportRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "export_runs_total",
				Help: "Total number of report export runs",
			},
			[]string{"status", "stage"},
		),

		ExportRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "export_run_duration_seconds",
				Help:    "Report export run duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"status"},
		),

		ExportRunsInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "export_runs_in_progress",
				Help: "Number of report export runs currently in progress",
			},
		),

		ReportPagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_pages_fetched_total",
				Help: "Total number of report pages fetched from the reporting API",
			},
			[]string{"view_id"},
		),

		ReportRowsExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_rows_exported_total",
				Help: "Total number of table rows written to a sink",
			},
			[]string{"sink"},
		),

		DecodeIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_decode_issues_total",
				Help: "Total number of page shapes that could not be decoded",
			},
			[]string{"shape"},
		),

		SinkWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_writes_total",
				Help: "Total number of result writes by sink and status",
			},
			[]string{"sink", "status"},
		),

		SinkBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sink_bytes_total",
				Help: "Total number of bytes written to sinks",
			},
			[]string{"sink"},
		),

		ExternalAPICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api", "status"},
		),

		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_api_duration_seconds",
				Help:    "External API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),

		ExternalAPIFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_failures_total",
				Help: "Total number of external API failures",
			},
			[]string{"api", "error_type"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Export run metrics
func (m *Metrics) RecordExportRun(status, stage string, duration time.Duration) {
	m.ExportRunsTotal.WithLabelValues(status, stage).Inc()
	m.ExportRunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) RecordReportPage(viewID string) {
	m.ReportPagesFetched.WithLabelValues(viewID).Inc()
}

func (m *Metrics) RecordDecodeIssue(shape string) {
	m.DecodeIssues.WithLabelValues(shape).Inc()
}

// Sink write metrics
func (m *Metrics) RecordSinkWrite(sink, status string, bytes, rows int) {
	m.SinkWrites.WithLabelValues(sink, status).Inc()
	if status == "success" {
		m.SinkBytes.WithLabelValues(sink).Add(float64(bytes))
		m.ReportRowsExported.WithLabelValues(sink).Add(float64(rows))
	}
}

// External API call metrics
func (m *Metrics) RecordExternalAPICall(api, status string, duration time.Duration) {
	m.ExternalAPICalls.WithLabelValues(api, status).Inc()
	m.ExternalAPIDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// External API failure metrics
func (m *Metrics) RecordExternalAPIFailure(api, errorType string) {
	m.ExternalAPIFailures.WithLabelValues(api, errorType).Inc()
}

func (m *Metrics) IncExportRunsInProgress() {
	m.ExportRunsInProgress.Inc()
}

func (m *Metrics) DecExportRunsInProgress() {
	m.ExportRunsInProgress.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
