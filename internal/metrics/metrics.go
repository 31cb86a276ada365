// Package metrics exposes prometheus counters for the fail-open and
// compensation paths that would otherwise be invisible.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ModerationSkipped counts publishes accepted because moderation failed.
	ModerationSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdbin_moderation_skipped_total",
		Help: "Publishes accepted without a moderation verdict due to collaborator failure.",
	})

	// RateLimitSkipped counts publishes accepted because the secondary limiter failed.
	RateLimitSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdbin_ratelimit_skipped_total",
		Help: "Publishes accepted without a rate limit verdict due to limiter failure.",
	})

	// RefundFailures counts quota refund writes that failed and were swallowed.
	RefundFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mdbin_refund_failures_total",
		Help: "Quota refunds that failed; the affected identity lost a unit until reset.",
	})

	// PublishOutcomes counts publish attempts by final outcome.
	PublishOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mdbin_publish_total",
		Help: "Publish attempts by outcome.",
	}, []string{"outcome"})
)

// Handler adapts the prometheus handler to gin.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
