package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "concierge"

// Metrics holds all prometheus metrics
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	Exports           *prometheus.CounterVec
	Imports           *prometheus.CounterVec
	BackupDuration    prometheus.Histogram
	SubscriptionSyncs prometheus.Counter
	SyncErrors        prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the metrics with reg. A nil reg uses the default
// prometheus registry.
func New(reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "The total number of API requests",
		}, []string{"route", "code"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "exports_total",
			Help:      "The total number of exports served",
		}, []string{"format"}),
		Imports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "imports_total",
			Help:      "The total number of imports by outcome",
		}, []string{"format", "result"}),
		BackupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "backup_duration_seconds",
			Help:      "Time taken to write a state snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
		SubscriptionSyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "subscription_syncs_total",
			Help:      "The total number of subscription refresh runs",
		}),
		SyncErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "subscription_sync_errors_total",
			Help:      "The total number of failed subscription fetches",
		}),
		gatherer: gatherer,
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Import outcome labels.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// ImportResult returns the result label for err.
func ImportResult(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}
