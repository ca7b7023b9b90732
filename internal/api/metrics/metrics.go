// Package metrics defines and registers all custom Prometheus metrics
// for the care backend. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "care"

// AuthAttemptsTotal counts authentication attempts.
// Labels:
//   - flow: "hashlink", "bearer", or "refresh"
//   - outcome: "authorized" or "unauthorized"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by flow and outcome.",
	},
	[]string{"flow", "outcome"},
)

// TokensIssuedTotal counts tokens issued.
// Label:
//   - grant: "hashlink" or "refresh" (the flow that produced the pair)
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access/refresh token pairs issued, by grant.",
	},
	[]string{"grant"},
)

// DiscoveryRefreshTotal counts federated discovery-document refreshes.
// Label:
//   - result: "ok" or "error"
var DiscoveryRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discovery_refresh_total",
		Help:      "Total number of federated discovery document refresh attempts.",
	},
	[]string{"result"},
)

// AuthDuration measures how long an authentication flow takes
// end-to-end, including external collaborator calls.
// Label:
//   - flow: "hashlink", "bearer", or "refresh"
var AuthDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "auth_duration_seconds",
		Help:      "Duration of authentication flows from entry to decision.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"flow"},
)
