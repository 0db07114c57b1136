// Package metrics — prometheus-метрики синхронизации и HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracksync"

var (
	// LookupsTotal — одиночные запросы по результату: cached, fetched, failed.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Single tracking lookups by result",
		},
		[]string{"result"},
	)

	ProviderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetches_total",
			Help:      "Provider fetches by outcome",
		},
		[]string{"outcome"},
	)

	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Synchronization transactions rolled back",
		},
	)

	BulkItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Bulk items by outcome",
		},
		[]string{"outcome"},
	)

	BulkBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_batches_total",
			Help:      "Bulk batches processed",
		},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Synchronization transaction duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	// OutcomeUnpersisted — данные получены, но в БД не записаны.
	OutcomeUnpersisted = "unpersisted"

	ResultCached  = "cached"
	ResultFetched = "fetched"
	ResultFailed  = "failed"
)
