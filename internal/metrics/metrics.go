package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Checkouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_checkouts_total",
		Help: "The total number of completed checkouts",
	})
	DuplicateCheckouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_checkouts_duplicate_total",
		Help: "The total number of checkouts short-circuited by idempotency replay",
	})
	VoidedTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_transactions_voided_total",
		Help: "The total number of voided transactions",
	})
	DiscountCentsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_discount_cents_granted_total",
		Help: "The total discount granted across checkouts, in minor units",
	})
	CatalogCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tillpoint_catalog_cache_hits_total",
		Help: "The total number of checkout product lookups served from cache",
	})
)
