// Package metrics defines the custom Prometheus metrics of the security demo
// API. It is the single source of truth for metric names, labels, and help
// strings; promauto registers everything with the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authdemo"

// LoginAttemptsTotal counts decided authentication attempts.
// Labels:
//   - level: "level1", "level2", "level3"
//   - outcome: "authenticated", "rejected", "locked_out",
//     "awaiting_second_factor", "expired"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of authentication attempts, by level and outcome.",
	},
	[]string{"level", "outcome"},
)

// LockoutsTotal counts lockout window activations (threshold crossings).
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of accounts entering a lockout window.",
	},
)

// TOTPVerificationsTotal counts second-factor code checks.
// Label:
//   - result: "ok" or "fail" (replays count as "fail")
var TOTPVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "totp_verifications_total",
		Help:      "Total number of TOTP code verifications, by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the events waiting in each audit worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of auth events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)
