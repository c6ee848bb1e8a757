package prometheus

import (
	"sync"
	"time"

	"workspace-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var initOnce sync.Once

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Resource operation metrics
	WorkspaceOperationsCounter prometheus.CounterVec
	ArtifactOperationsCounter  prometheus.CounterVec
	TagOperationsCounter       prometheus.CounterVec

	// Environment toggle metrics
	EnvironmentToggleCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration. Repeated
// calls are no-ops; collectors register once against the default registry.
func InitMetrics(config *config.Config) {
	initOnce.Do(func() { initMetrics(config) })
}

func initMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Workspace metrics
	WorkspaceOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_workspace_operations_total",
			Help: "Total number of workspace operations",
		},
		[]string{"operation"},
	)

	// Artifact metrics
	ArtifactOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_artifact_operations_total",
			Help: "Total number of artifact operations",
		},
		[]string{"operation", "kind"},
	)

	// Tag metrics
	TagOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_tag_operations_total",
			Help: "Total number of tag operations",
		},
		[]string{"operation"},
	)

	// Environment toggle metrics
	EnvironmentToggleCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_environment_toggles_total",
			Help: "Total number of environment enable/disable operations",
		},
		[]string{"action"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordWorkspaceOperation increments the counter for workspace operations
func RecordWorkspaceOperation(operation string) {
	WorkspaceOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordArtifactOperation increments the counter for artifact operations
func RecordArtifactOperation(operation string, kind string) {
	ArtifactOperationsCounter.WithLabelValues(operation, kind).Inc()
}

// RecordTagOperation increments the counter for tag operations
func RecordTagOperation(operation string) {
	TagOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordEnvironmentToggle increments the counter for environment toggles
func RecordEnvironmentToggle(action string) {
	EnvironmentToggleCounter.WithLabelValues(action).Inc()
}
