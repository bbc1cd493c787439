package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "photoshare_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Signup counter by flow (signup, member_signup, admin_signup)
	SignupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_signup_total",
			Help: "Total number of signup attempts by flow",
		},
		[]string{"flow"},
	)

	// Token operation counter (issue, rotate, revoke)
	TokenOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_token_operations_total",
			Help: "Total number of token operations",
		},
		[]string{"operation"},
	)

	// Authentication error counter
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	// Security event counter: cross-tenant attempts, bypass attempts,
	// missing context. These are the alerts operators page on.
	SecurityEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_security_events_total",
			Help: "Total number of security-relevant denials by kind",
		},
		[]string{"kind"},
	)

	// Cross-tenant attempt counter, kept separate for dashboards
	CrossTenantCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "photoshare_cross_tenant_attempts_total",
			Help: "Total number of blocked cross-tenant access attempts",
		},
	)

	// Storage operation counter (upload, sign, delete, head) by result
	StorageOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_storage_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"operation", "result"},
	)

	// Rate limit rejections by operation
	RateLimitCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_rate_limit_rejections_total",
			Help: "Total number of rate-limited requests by operation",
		},
		[]string{"operation"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photoshare_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoshare_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoshare_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Storage operation duration
	StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photoshare_storage_operation_duration_seconds",
			Help:    "Duration of object storage operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// Active tenants
	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "photoshare_active_tenants",
			Help: "Number of currently active church tenants",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photoshare_info",
			Help: "Information about the photoshare service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(SignupCounter)
	prometheus.MustRegister(TokenOperationCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(SecurityEventCounter)
	prometheus.MustRegister(CrossTenantCounter)
	prometheus.MustRegister(StorageOperationCounter)
	prometheus.MustRegister(RateLimitCounter)
	prometheus.MustRegister(HTTPRequestCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(StorageOperationDuration)

	prometheus.MustRegister(ActiveTenantsGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// TrackStorageOperation measures object storage operation durations
func TrackStorageOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		StorageOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordSecurityEvent records a security-relevant denial by kind
func RecordSecurityEvent(kind string) {
	SecurityEventCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordCrossTenantAttempt records a blocked cross-tenant access
func RecordCrossTenantAttempt() {
	CrossTenantCounter.Inc()
	RecordSecurityEvent("cross_tenant_access")
}

// RecordTokenOperation records a token operation (issue, rotate, revoke)
func RecordTokenOperation(operation string) {
	TokenOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordStorageOperation records an object storage operation outcome
func RecordStorageOperation(operation, result string) {
	StorageOperationCounter.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
}

// RecordRateLimited records a rate-limited request by operation
func RecordRateLimited(operation string) {
	RateLimitCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordSignup records a signup attempt by flow
func RecordSignup(flow string) {
	SignupCounter.With(prometheus.Labels{"flow": flow}).Inc()
}

// UpdateActiveTenants updates the active tenants gauge
func UpdateActiveTenants(count int64) {
	ActiveTenantsGauge.Set(float64(count))
}
