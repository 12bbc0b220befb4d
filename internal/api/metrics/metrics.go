// Package metrics defines the custom Prometheus metrics of the marketplace API. It is
// the single source of truth for metric names, labels and help strings.
//
// Metrics are registered with the default registry on package init through promauto
// and exposed by the router at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts finished requests.
// Labels:
//   - method: HTTP method
//   - route: the matched route pattern (e.g. "/api/auth/login"), never the raw path
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency from the first middleware to the response.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// RateLimitedTotal counts requests rejected by a rate limiter.
// Label:
//   - scope: "ip" for the global per-address limiter, "otp" for the per-destination send throttle
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by a rate limiter.",
	},
	[]string{"scope"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthOperationsTotal counts identity operations by outcome.
// Labels:
//   - operation: e.g. "register", "login", "verify_email", "google_callback"
//   - outcome: "success", "rejected" (4xx class) or "error" (5xx class)
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of identity operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// OTPSentTotal counts one-time codes and reset links handed to the notifier.
// Label:
//   - channel: "email" or "sms"
var OTPSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_sent_total",
		Help:      "Total number of verification codes and reset links sent, by channel.",
	},
	[]string{"channel"},
)

// SessionsIssuedTotal counts token pairs issued.
// Label:
//   - method: "password", "email_verification", "phone_verification" or "google"
var SessionsIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_issued_total",
		Help:      "Total number of sessions started, by sign-in method.",
	},
	[]string{"method"},
)

// Outcome labels for AuthOperationsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Scope labels for RateLimitedTotal.
const (
	ScopeIP  = "ip"
	ScopeOTP = "otp"
)
