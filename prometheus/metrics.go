package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweetshop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweetshop_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// StatusCodeCategoryCounter counts responses by status class
	StatusCodeCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweetshop_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category"},
	)
)

var (
	// Authentication metrics
	AuthAttemptsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweetshop_auth_attempts_total",
			Help: "Total number of authentication operations",
		},
		[]string{"operation"}, // login, register, logout
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweetshop_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	// Database operation metrics
	DbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweetshop_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

var (
	// InventoryOperationsCounter counts purchase, checkout and restock outcomes
	InventoryOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweetshop_inventory_operations_total",
			Help: "Total number of inventory transactions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	UnitsSoldCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweetshop_units_sold_total",
			Help: "Total number of units sold across all sweets",
		},
	)

	RevenueCentsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweetshop_revenue_cents_total",
			Help: "Total value of completed purchases in minor currency units",
		},
	)

	// SweetStockGauge mirrors the last known stock level per sweet
	SweetStockGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sweetshop_sweet_stock",
			Help: "Current stock level for sweets",
		},
		[]string{"sweet_id", "category"},
	)

	CatalogOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweetshop_catalog_operations_total",
			Help: "Total number of catalog operations",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		StatusCodeCategoryCounter,
		AuthAttemptsCounter,
		AuthErrorCounter,
		DbOperationDuration,
		InventoryOperationsCounter,
		UnitsSoldCounter,
		RevenueCentsCounter,
		SweetStockGauge,
		CatalogOperationsCounter,
	)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records request count, duration and status class.
// It expects errors to have been rendered by an inner middleware.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			method := c.Request().Method
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			statusStr := strconv.Itoa(status)

			HttpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
			HttpRequestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
			if category := statusCategory(status); category != "" {
				StatusCodeCategoryCounter.WithLabelValues(category).Inc()
			}

			return err
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DbOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordAuthAttempt increments the counter for an authentication operation
func RecordAuthAttempt(operation string) {
	AuthAttemptsCounter.WithLabelValues(operation).Inc()
}

// RecordAuthError increments the counter for authentication errors
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordInventoryOperation increments the outcome counter for an inventory transaction
func RecordInventoryOperation(operation, outcome string) {
	InventoryOperationsCounter.WithLabelValues(operation, outcome).Inc()
}

// RecordSale adds a completed purchase to the sales counters. Negative
// values are ignored; counters panic when asked to decrease.
func RecordSale(units int, totalCents int64) {
	if units > 0 {
		UnitsSoldCounter.Add(float64(units))
	}
	if totalCents > 0 {
		RevenueCentsCounter.Add(float64(totalCents))
	}
}

// UpdateSweetStock updates the gauge for a sweet's stock level
func UpdateSweetStock(sweetID, category string, quantity int) {
	SweetStockGauge.WithLabelValues(sweetID, category).Set(float64(quantity))
}

// ForgetSweet drops the stock series of a deleted sweet
func ForgetSweet(sweetID, category string) {
	SweetStockGauge.DeleteLabelValues(sweetID, category)
}

// RecordCatalogOperation increments the counter for catalog operations
func RecordCatalogOperation(operation string) {
	CatalogOperationsCounter.WithLabelValues(operation).Inc()
}
