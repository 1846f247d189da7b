package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipurl_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// VerificationMails counts verification email dispatches by result (sent|failed).
	VerificationMails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipurl_verification_mails_total",
			Help: "Total number of verification mail dispatch attempts",
		},
		[]string{"result"},
	)

	// Redirects counts short-link resolutions by outcome (hit|miss).
	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipurl_redirects_total",
			Help: "Total number of short link resolutions",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipurl_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
