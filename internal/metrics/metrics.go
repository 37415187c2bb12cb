// Package metrics defines the Prometheus collectors of the perizinan backend.
// Collectors register with the default registry on import and are served by
// GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "perizinan"

// ── HTTP ──────────────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - route: the matched gin route (e.g. "/api/v1/perizinan/:id")
//   - method: HTTP method
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled.",
	},
	[]string{"route", "method", "status"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

// ── Requests ──────────────────────────────────────────────────────────────────

// RequestsCreatedTotal counts permission requests submitted.
var RequestsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_created_total",
		Help:      "Total number of permission requests created.",
	},
)

// StatusTransitionsTotal counts status decisions.
// Label:
//   - status: "approved" or "rejected"
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of permission request status transitions.",
	},
	[]string{"status"},
)

// FeedSubscribers tracks open live feed connections.
var FeedSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feed_subscribers",
		Help:      "Current number of live feed subscribers.",
	},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// RoleResolutionsTotal counts role lookups.
// Label:
//   - outcome: "resolved", "retried" or "unresolved"
var RoleResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_resolutions_total",
		Help:      "Total number of role resolutions, by outcome.",
	},
	[]string{"outcome"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials", "not_provisioned" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Provisioning ──────────────────────────────────────────────────────────────

// ProvisioningFailuresTotal counts failed account provisioning steps.
// Label:
//   - stage: "identity", "role", "account" or "compensation"
var ProvisioningFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_failures_total",
		Help:      "Total number of account provisioning failures, by stage.",
	},
	[]string{"stage"},
)
