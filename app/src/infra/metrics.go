package infra

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	HttpRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	})
	HttpRequestErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "http_request_errors_total",
		Help: "Total number of HTTP request errors",
	})
	RequestDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "obruk_request_duration_seconds",
		Help:    "Duration of request processing in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Ingestion metrics
	IngestTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obruk_ingest_total",
		Help: "Total number of measurements accepted on the write path",
	})
	IngestErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obruk_ingest_errors_total",
		Help: "Total number of rejected or failed ingestion attempts",
	})
	BulkRowsAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obruk_bulk_rows_accepted_total",
		Help: "Total number of bulk upload rows stored",
	})
	BulkRowsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obruk_bulk_rows_dropped_total",
		Help: "Total number of bulk upload rows dropped by validation",
	})

	// Storage metrics
	StoreAppendDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "obruk_store_append_duration_seconds",
		Help:    "Duration of measurement store appends in seconds",
		Buckets: prometheus.DefBuckets,
	})
	StoreReadDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "obruk_store_read_duration_seconds",
		Help:    "Duration of measurement store reads in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// Prediction gateway metrics
	PredictionRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obruk_prediction_requests_total",
		Help: "Total number of forecast requests sent to the AI service",
	})
	PredictionFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obruk_prediction_failures_total",
		Help: "Total number of failed forecast requests",
	})
	PredictionDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "obruk_prediction_duration_seconds",
		Help:    "Duration of AI service calls in seconds",
		Buckets: prometheus.DefBuckets,
	})

	registerOnce      sync.Once
	metricsServerOnce sync.Once
)

func init() {
	InitMetrics()
}

// InitMetrics registers all Prometheus collectors used by the application.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HttpRequestsTotal,
			HttpRequestErrorsTotal,
			RequestDurationSeconds,
			IngestTotal,
			IngestErrorsTotal,
			BulkRowsAcceptedTotal,
			BulkRowsDroppedTotal,
			StoreAppendDurationSeconds,
			StoreReadDurationSeconds,
			PredictionRequestsTotal,
			PredictionFailuresTotal,
			PredictionDurationSeconds,
		)
	})
}

// Handler returns an HTTP handler that exposes the registered Prometheus metrics.
func Handler() http.Handler {
	InitMetrics()
	return promhttp.Handler()
}

// StartMetricsServer exposes Prometheus metrics on the configured port.
func StartMetricsServer(port string, logger *Logger) {
	InitMetrics()
	if port == "" {
		return
	}
	metricsServerOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		go func() {
			if err := http.ListenAndServe(":"+port, mux); err != nil {
				if logger != nil {
					logger.Printf(context.Background(), "metrics server error: %v", err)
				}
			}
		}()
	})
}

// HTTPMiddleware instruments HTTP handlers with request/latency metrics.
func HTTPMiddleware(pathResolver func(*http.Request) string) func(http.Handler) http.Handler {
	InitMetrics()
	if pathResolver == nil {
		pathResolver = func(r *http.Request) string {
			if r == nil {
				return "unknown"
			}
			return r.URL.Path
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r == nil {
				HttpRequestErrorsTotal.Inc()
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			defer func() {
				RequestDurationSeconds.Observe(time.Since(start).Seconds())
				HttpRequestsTotal.Inc()

				if recorder.Status() >= http.StatusBadRequest {
					HttpRequestErrorsTotal.Inc()
				}
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}

// IncIngest counts one stored measurement.
func IncIngest() {
	InitMetrics()
	IngestTotal.Inc()
}

// IncIngestError counts one rejected or failed ingestion attempt.
func IncIngestError() {
	InitMetrics()
	IngestErrorsTotal.Inc()
}

// AddBulkRows records the per-upload accepted/dropped split.
func AddBulkRows(accepted, dropped int) {
	InitMetrics()
	if accepted > 0 {
		BulkRowsAcceptedTotal.Add(float64(accepted))
	}
	if dropped > 0 {
		BulkRowsDroppedTotal.Add(float64(dropped))
	}
}

// ObserveStoreAppend tracks the latency of one store append.
func ObserveStoreAppend(duration time.Duration) {
	InitMetrics()
	if duration < 0 {
		duration = 0
	}
	StoreAppendDurationSeconds.Observe(duration.Seconds())
}

// ObserveStoreRead tracks the latency of one store read.
func ObserveStoreRead(duration time.Duration) {
	InitMetrics()
	if duration < 0 {
		duration = 0
	}
	StoreReadDurationSeconds.Observe(duration.Seconds())
}

// ObservePrediction tracks one AI call and whether it failed.
func ObservePrediction(duration time.Duration, failed bool) {
	InitMetrics()
	if duration < 0 {
		duration = 0
	}
	PredictionRequestsTotal.Inc()
	PredictionDurationSeconds.Observe(duration.Seconds())
	if failed {
		PredictionFailuresTotal.Inc()
	}
}

// statusRecorder captures the response status code for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Status() int {
	return r.status
}
