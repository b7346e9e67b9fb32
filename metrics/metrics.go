package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertfilter_http_request_duration_seconds",
			Help:    "Time taken to serve API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	SettingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_setting_operations_total",
			Help: "Total number of user setting operations",
		},
		[]string{"operation", "result"},
	)

	AccessDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertfilter_access_denied_total",
			Help: "Total number of setting operations refused by the access gate",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_cache_errors_total",
			Help: "Total number of cache errors",
		},
		[]string{"cache", "operation"},
	)

	SQLitePoolOpenConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alertfilter_sqlite_pool_open_connections",
			Help: "Open connections in the SQLite pool",
		},
		[]string{"pool"},
	)

	SQLitePoolInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alertfilter_sqlite_pool_in_use",
			Help: "Connections currently in use in the SQLite pool",
		},
		[]string{"pool"},
	)

	SQLitePoolIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alertfilter_sqlite_pool_idle",
			Help: "Idle connections in the SQLite pool",
		},
		[]string{"pool"},
	)

	SQLitePoolWaitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_sqlite_pool_wait_count_total",
			Help: "Total number of connections waited for",
		},
		[]string{"pool"},
	)

	GoroutinePanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfilter_goroutine_panics_total",
			Help: "Total number of recovered goroutine panics",
		},
		[]string{"goroutine"},
	)
)
