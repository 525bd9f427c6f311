// Package metrics defines all custom Prometheus metrics for the master app
// client core. It is the single source of truth for metric names, labels, and
// help strings; metrics register with the default registry at import time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "masterapp"

// LoginsTotal counts completed login exchanges. Under the at-most-once
// bootstrap protocol this increments at most once per cold start.
var LoginsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of credential-for-token login exchanges performed.",
	},
)

// BootstrapFailuresTotal counts failed bootstrap attempts.
// Label:
//   - kind: transport error classification (unauthorized, conflict, transport, ...)
var BootstrapFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_failures_total",
		Help:      "Total number of bootstrap attempts that failed, by error kind.",
	},
	[]string{"kind"},
)

// OrderConflictsTotal counts 409 responses on order mutations.
// Label:
//   - operation: "accept" or "advance"
var OrderConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_conflicts_total",
		Help:      "Total number of conflict responses on order mutations, by operation.",
	},
	[]string{"operation"},
)

// AdvanceRollbacksTotal counts optimistic status writes that were rolled back.
// Label:
//   - reason: error kind that forced the rollback
var AdvanceRollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advance_rollbacks_total",
		Help:      "Total number of optimistic status transitions rolled back, by reason.",
	},
	[]string{"reason"},
)

// PollTicksTotal counts poller ticks.
// Labels:
//   - poller: poller name (e.g. "orders_available", "verification")
//   - result: "ok", "error" or "paused"
var PollTicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_ticks_total",
		Help:      "Total number of poller ticks, by poller and result.",
	},
	[]string{"poller", "result"},
)
