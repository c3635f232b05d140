package monitor

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// MetricsCollector collects business and system metrics
type MetricsCollector struct {
	// Business metrics
	checkoutTotal       *prometheus.CounterVec
	checkoutDuration    *prometheus.HistogramVec
	checkoutOrdersTotal prometheus.Counter
	stockConflictTotal  prometheus.Counter
	lockTimeoutTotal    prometheus.Counter
	autoCancelTotal     *prometheus.CounterVec
	orderCancelTotal    *prometheus.CounterVec
	webhookTotal        *prometheus.CounterVec

	// HTTP metrics
	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Database metrics
	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge

	// Queue metrics
	queueJobTotal    *prometheus.CounterVec
	queueJobDuration *prometheus.HistogramVec
	queueDepth       *prometheus.GaugeVec

	// Runtime metrics
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge
	gcDuration     prometheus.Gauge
}

// NewMetricsCollector creates a metrics collector
func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{}
	mc.initMetrics()
	return mc
}

// initMetrics initializes all metrics
func (mc *MetricsCollector) initMetrics() {
	mc.checkoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Total number of checkout attempts",
		},
		[]string{"status"},
	)

	mc.checkoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Duration of checkout requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	mc.checkoutOrdersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_orders_total",
			Help:      "Total number of orders created by checkouts",
		},
	)

	mc.stockConflictTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflict_total",
			Help:      "Total number of optimistic stock check failures",
		},
	)

	mc.lockTimeoutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeout_total",
			Help:      "Total number of checkouts that failed to take the SKU locks",
		},
	)

	mc.autoCancelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_cancel_total",
			Help:      "Total number of auto-cancel job runs",
		},
		[]string{"status"},
	)

	mc.orderCancelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_cancel_total",
			Help:      "Total number of manual order cancellations",
		},
		[]string{"status"},
	)

	mc.webhookTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Total number of bank webhook notifications",
		},
		[]string{"status"},
	)

	mc.httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	mc.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	mc.dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_active",
			Help:      "Number of active database connections",
		},
	)

	mc.dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	mc.queueJobTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_job_total",
			Help:      "Total number of delayed jobs processed",
		},
		[]string{"job", "status"},
	)

	mc.queueJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_job_duration_seconds",
			Help:      "Duration of delayed job processing",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	mc.queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of jobs waiting in the delay queue",
		},
		[]string{"queue"},
	)

	mc.memoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_bytes",
			Help:      "Memory usage in bytes",
		},
	)

	mc.goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutine_count",
			Help:      "Number of goroutines",
		},
	)

	mc.gcDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_duration_seconds",
			Help:      "Cumulative garbage collection pause time",
		},
	)
}

// RecordCheckout records a checkout attempt
func (mc *MetricsCollector) RecordCheckout(status string, duration time.Duration) {
	mc.checkoutTotal.WithLabelValues(status).Inc()
	mc.checkoutDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordCheckoutOrders records orders created by a successful checkout
func (mc *MetricsCollector) RecordCheckoutOrders(count int) {
	mc.checkoutOrdersTotal.Add(float64(count))
}

// RecordStockConflict records an optimistic stock check failure
func (mc *MetricsCollector) RecordStockConflict() {
	mc.stockConflictTotal.Inc()
}

// RecordLockTimeout records a failed SKU lock acquisition
func (mc *MetricsCollector) RecordLockTimeout() {
	mc.lockTimeoutTotal.Inc()
}

// RecordAutoCancel records an auto-cancel job run
func (mc *MetricsCollector) RecordAutoCancel(status string) {
	mc.autoCancelTotal.WithLabelValues(status).Inc()
}

// RecordOrderCancel records a manual cancellation
func (mc *MetricsCollector) RecordOrderCancel(status string) {
	mc.orderCancelTotal.WithLabelValues(status).Inc()
}

// RecordWebhook records a bank webhook notification
func (mc *MetricsCollector) RecordWebhook(status string) {
	mc.webhookTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (mc *MetricsCollector) RecordHTTPRequest(method, path, status string) {
	mc.httpRequestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request duration
func (mc *MetricsCollector) RecordHTTPDuration(method, path string, duration time.Duration) {
	mc.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateDBConnections updates database connection gauges
func (mc *MetricsCollector) UpdateDBConnections(active, idle int) {
	mc.dbConnectionsActive.Set(float64(active))
	mc.dbConnectionsIdle.Set(float64(idle))
}

// RecordQueueJob records a processed delayed job
func (mc *MetricsCollector) RecordQueueJob(job, status string, duration time.Duration) {
	mc.queueJobTotal.WithLabelValues(job, status).Inc()
	mc.queueJobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// UpdateQueueDepth updates the delay queue depth gauge
func (mc *MetricsCollector) UpdateQueueDepth(queue string, depth int64) {
	mc.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// UpdateSystemMetrics updates runtime gauges
func (mc *MetricsCollector) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mc.memoryUsage.Set(float64(m.Alloc))
	mc.goroutineCount.Set(float64(runtime.NumGoroutine()))
	mc.gcDuration.Set(float64(m.PauseTotalNs) / 1e9)
}

// StartSystemMetricsCollection periodically refreshes runtime gauges
func (mc *MetricsCollector) StartSystemMetricsCollection(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.UpdateSystemMetrics()
		}
	}
}
