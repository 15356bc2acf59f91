package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the vault ledger.
type Metrics struct {
	// --- Operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec

	// --- Ledger aggregates ---
	VaultTotalDeposits  prometheus.Gauge
	CustodyNativeFunds  prometheus.Gauge
	CustodyWrappedFunds prometheus.Gauge
	CustodyQuoteFunds   prometheus.Gauge

	// --- Settlement ---
	SwapCount         prometheus.Gauge
	LastSwapPrice     prometheus.Gauge
	VenueCallDuration prometheus.Histogram
	VenueBreakerOpen  prometheus.Gauge

	// --- Persistence worker ---
	PersistRowsWritten prometheus.Counter
	PersistBatchSize   prometheus.Histogram
	PersistBatchDur    prometheus.Histogram
	PersistErrors      *prometheus.CounterVec
	PersistRetry       prometheus.Counter

	// --- Publishing ---
	PublishFailures prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	venueBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005,
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_ops_applied_total",
			Help: "Ledger operations successfully applied",
		}, []string{"op"}),
		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_ops_rejected_total",
			Help: "Ledger operations rejected before commit",
		}, []string{"op", "reason"}),
		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_op_duration_seconds",
			Help:    "End-to-end operation latency inside the engine",
			Buckets: opBuckets,
		}, []string{"op"}),

		VaultTotalDeposits: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_total_deposits",
			Help: "Cumulative net base-asset deposits recorded by the vault",
		}),
		CustodyNativeFunds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_custody_native_balance",
			Help: "Actual base-asset balance of the custody account",
		}),
		CustodyWrappedFunds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_custody_wrapped_balance",
			Help: "Cached wrapped-base total of the token custody",
		}),
		CustodyQuoteFunds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_custody_quote_balance",
			Help: "Cached quote total of the token custody",
		}),

		SwapCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_swap_count",
			Help: "Total settled swaps",
		}),
		LastSwapPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_last_swap_price",
			Help: "Quote per base of the last venue swap, price-scaled",
		}),
		VenueCallDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_venue_call_duration_seconds",
			Help:    "External venue call latency",
			Buckets: venueBuckets,
		}),
		VenueBreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vault_venue_breaker_open",
			Help: "1 when the venue circuit breaker is open",
		}),

		PersistRowsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_persist_rows_written_total",
			Help: "Operation rows written to the operation log",
		}),
		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_persist_batch_size",
			Help:    "Rows per persistence flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vault_persist_batch_duration_seconds",
			Help:    "Persistence flush latency",
			Buckets: venueBuckets,
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_persist_errors_total",
			Help: "Persistence failures by stage",
		}, []string{"stage"}),
		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_persist_retries_total",
			Help: "Persistence flush retries",
		}),

		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vault_publish_failures_total",
			Help: "Outbound NATS publish failures (non-fatal)",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_query_requests_total",
			Help: "Query API requests",
		}, []string{"endpoint"}),
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_query_duration_seconds",
			Help:    "Query API latency",
			Buckets: opBuckets,
		}, []string{"endpoint"}),
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_cache_hits_total",
			Help: "Read-cache hits",
		}, []string{"key"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_cache_misses_total",
			Help: "Read-cache misses",
		}, []string{"key"}),
	}
}
