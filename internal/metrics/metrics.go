package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"siterent-backend/internal/domain"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siterent_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siterent_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GRPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siterent_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siterent_ledger_operations_total",
			Help: "Ledger operations by outcome kind",
		},
		[]string{"operation", "outcome"},
	)

	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siterent_ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	TxRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siterent_tx_retries_total",
			Help: "Transactions retried after a storage conflict",
		},
		[]string{"operation"},
	)

	BalanceDriftCents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "siterent_site_balance_drift_cents",
			Help: "Last drift found between stored and recomputed due amount",
		},
		[]string{"site_id"},
	)
)

// Outcome returns the label used for err: "ok", the error kind, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != nil {
		return kind.Error()
	}
	return "error"
}

// ObserveOperation records the outcome and duration of one ledger operation.
func ObserveOperation(operation string, start time.Time, err error) {
	LedgerOperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	LedgerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
