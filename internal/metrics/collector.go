// Package metrics exposes Prometheus collectors for every component of
// the storage engine core (tree operations, blob store, cache layers,
// audit queue, background jobs). pkg/api mounts the shared registry
// behind /metrics; this package only records.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric namespacing.
type Config struct {
	Enabled   bool
	Namespace string
	Subsystem string
}

// DefaultConfig returns metrics enabled under the "corestore" namespace.
func DefaultConfig() *Config {
	return &Config{Enabled: true, Namespace: "corestore"}
}

// Collector aggregates the engine's Prometheus metrics.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.HistogramVec
	cacheRequests     *prometheus.CounterVec
	cacheSize         *prometheus.GaugeVec
	poolInUse         prometheus.Gauge
	errorCounter      *prometheus.CounterVec
	queueDepth        *prometheus.GaugeVec
	breakerState      *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()
	c := &Collector{config: config, registry: registry}

	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "operations_total",
		Help:      "Total number of tree/blob/listing operations by component and outcome.",
	}, []string{"component", "operation", "status"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Operation latency in seconds, by component.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"component", "operation"})

	c.operationSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "operation_size_bytes",
		Help:      "Size in bytes of blob reads/writes.",
		Buckets:   prometheus.ExponentialBuckets(1024, 2, 20),
	}, []string{"operation"})

	c.cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "cache_requests_total",
		Help:      "Cache requests by level (L1/L2) and outcome (hit/miss).",
	}, []string{"level", "outcome"})

	c.cacheSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "cache_entries",
		Help:      "Current entry count per cache level.",
	}, []string{"level"})

	c.poolInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "db_pool_in_use",
		Help:      "Connections currently checked out of the Postgres pool.",
	})

	c.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and error kind.",
	}, []string{"component", "kind"})

	c.queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "queue_depth",
		Help:      "Pending items per background queue (audit, trash expiry, orphan reconciliation).",
	}, []string{"queue"})

	c.breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open) by dependency name.",
	}, []string{"name"})

	collectors := []prometheus.Collector{
		c.operationCounter, c.operationDuration, c.operationSize,
		c.cacheRequests, c.cacheSize, c.poolInUse, c.errorCounter,
		c.queueDepth, c.breakerState,
	}
	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Registry returns the Prometheus registry pkg/api mounts at /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordOperation records an operation's outcome, duration, and (when
// applicable) the number of bytes moved.
func (c *Collector) RecordOperation(component, operation string, duration time.Duration, size int64, success bool) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.WithLabelValues(component, operation, status).Inc()
	c.operationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
	if size > 0 {
		c.operationSize.WithLabelValues(operation).Observe(float64(size))
	}
}

// RecordCacheHit records a cache hit at the given level (L1, L2).
func (c *Collector) RecordCacheHit(level string) {
	if !c.config.Enabled {
		return
	}
	c.cacheRequests.WithLabelValues(level, "hit").Inc()
}

// RecordCacheMiss records a cache miss at the given level.
func (c *Collector) RecordCacheMiss(level string) {
	if !c.config.Enabled {
		return
	}
	c.cacheRequests.WithLabelValues(level, "miss").Inc()
}

// RecordError records an error, tagged with its component and the
// error's Kind string (e.g. "NOT_FOUND", "UNAVAILABLE").
func (c *Collector) RecordError(component, kind string) {
	if !c.config.Enabled {
		return
	}
	c.errorCounter.WithLabelValues(component, kind).Inc()
}

// UpdateCacheSize sets the current entry count for a cache level.
func (c *Collector) UpdateCacheSize(level string, entries int64) {
	if !c.config.Enabled {
		return
	}
	c.cacheSize.WithLabelValues(level).Set(float64(entries))
}

// UpdateDBPoolInUse sets the number of Postgres connections checked out.
func (c *Collector) UpdateDBPoolInUse(count int) {
	if !c.config.Enabled {
		return
	}
	c.poolInUse.Set(float64(count))
}

// UpdateQueueDepth sets the pending-item count for a named queue.
func (c *Collector) UpdateQueueDepth(queue string, depth int) {
	if !c.config.Enabled {
		return
	}
	c.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// UpdateBreakerState sets a circuit breaker's state gauge (0/1/2).
func (c *Collector) UpdateBreakerState(name string, state int) {
	if !c.config.Enabled {
		return
	}
	c.breakerState.WithLabelValues(name).Set(float64(state))
}
