// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hookah",
		Name:      "sessions_created_total",
		Help:      "Mixing sessions committed.",
	})
	SessionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hookah",
		Name:      "sessions_deleted_total",
		Help:      "Mixing sessions undone.",
	})
	GramsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hookah",
		Name:      "stock_grams_total",
		Help:      "Grams of tobacco moved, by movement kind.",
	}, []string{"kind"})
	Restocks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hookah",
		Name:      "restocks_total",
		Help:      "Restock operations committed.",
	})
	InsufficientStock = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hookah",
		Name:      "insufficient_stock_total",
		Help:      "Session attempts rejected for lack of stock.",
	})
	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hookah",
		Name:      "login_failures_total",
		Help:      "PIN logins that matched no active user.",
	})
)
