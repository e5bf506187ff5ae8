package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Validation metrics
	validationsTotal   *prometheus.CounterVec
	validationDuration prometheus.Histogram
	outcomesPerRun     prometheus.Histogram
	symbolsSkipped     *prometheus.CounterVec
	reportsSaved       *prometheus.CounterVec
	jobsActive         *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Validation metrics
	r.validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeval_validations_total",
			Help: "Total number of validation runs by strategy and final status",
		},
		[]string{"strategy", "status"},
	)
	r.validationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgeval_validation_duration_seconds",
			Help:    "Validation run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.outcomesPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgeval_validation_outcomes",
			Help:    "Signal outcomes collected per validation run",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)
	r.symbolsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeval_symbols_skipped_total",
			Help: "Symbols that contributed no outcomes, by reason",
		},
		[]string{"reason"},
	)
	r.reportsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeval_reports_saved_total",
			Help: "Reports written to the archive",
		},
		[]string{"status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "edgeval_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.validationsTotal)
	reg.MustRegister(r.validationDuration)
	reg.MustRegister(r.outcomesPerRun)
	reg.MustRegister(r.symbolsSkipped)
	reg.MustRegister(r.reportsSaved)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordValidation records a finished validation run.
func (r *Registry) RecordValidation(strategy, status string, seconds float64, outcomes int) {
	r.validationsTotal.WithLabelValues(strategy, status).Inc()
	r.validationDuration.Observe(seconds)
	r.outcomesPerRun.Observe(float64(outcomes))
}

// RecordSymbolSkipped records a symbol dropped from a run.
func (r *Registry) RecordSymbolSkipped(reason string) {
	r.symbolsSkipped.WithLabelValues(reason).Inc()
}

// RecordReportSaved records an archive write.
func (r *Registry) RecordReportSaved(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.reportsSaved.WithLabelValues(status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
