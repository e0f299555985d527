package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TransactionsWritten counts committed ledger writes by operation and transaction type.
	TransactionsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_written_total",
			Help: "Committed transaction writes by operation (create, update, delete) and type",
		},
		[]string{"op", "type"},
	)

	// AuthRejections counts refused bearer credentials by reason.
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_auth_rejections_total",
			Help: "Bearer credentials rejected by reason",
		},
		[]string{"reason"},
	)

	// Logins counts login attempts by result (success, invalid, error).
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// Users is the number of registered users, refreshed by the scheduler.
	Users = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_users",
		Help: "Number of registered users",
	})

	// Transactions is the number of stored transactions, refreshed by the scheduler.
	Transactions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_transactions",
		Help: "Number of stored transactions",
	})
)

var (
	// Postgres uuids, Mongo ObjectIDs and plain integers.
	idPathSegment = regexp.MustCompile(`/([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|[0-9a-fA-F]{24}|[0-9]+)(/|$)`)
	initOnce      sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, TransactionsWritten, AuthRejections, Logins, Users, Transactions)
	})
}

// NormalizePath reduces cardinality by replacing id path segments with {id}.
// E.g. /transactions/4f0c...-... -> /transactions/{id}.
func NormalizePath(path string) string {
	return idPathSegment.ReplaceAllString(path, "/{id}$2")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncTransactionsWritten(op, txType string) {
	TransactionsWritten.WithLabelValues(op, txType).Inc()
}

func IncAuthRejection(reason string) {
	AuthRejections.WithLabelValues(reason).Inc()
}

func IncLogin(result string) {
	Logins.WithLabelValues(result).Inc()
}

// SetLedgerSize sets both size gauges.
func SetLedgerSize(users, transactions int64) {
	Users.Set(float64(users))
	Transactions.Set(float64(transactions))
}
