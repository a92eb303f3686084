// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionTransitions counts session operations by outcome.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_session_transitions_total",
		Help: "Session store operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// CatalogBatches counts generated or loaded batches per category.
	CatalogBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_catalog_batches_total",
		Help: "Total number of catalog batches served by category",
	}, []string{"category"})

	// CatalogBatchSize records the number of records per batch.
	CatalogBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tubeclone_catalog_batch_size",
		Help:    "Number of records in a served catalog batch",
		Buckets: []float64{0, 1, 4, 8, 12, 16, 24, 50, 100, 200},
	})

	// ListMutations counts writes to persisted lists.
	ListMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_list_mutations_total",
		Help: "Persisted list mutations by list and action",
	}, []string{"list", "action"})

	// ToastsDelivered counts toast notifications by variant and delivery path.
	ToastsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_toasts_total",
		Help: "Toast notifications by variant and delivery path",
	}, []string{"variant", "path"})

	// StaleLoadsDiscarded counts view loads whose results arrived after navigation.
	StaleLoadsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_stale_loads_discarded_total",
		Help: "View loads discarded because the view was no longer mounted",
	}, []string{"view"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})

	// RateLimitRefusals counts requests refused for exceeding their budget.
	RateLimitRefusals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubeclone_rate_limit_refusals_total",
		Help: "Requests refused by the per-client rate limiter",
	}, []string{"resource"})
)
