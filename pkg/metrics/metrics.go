package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "versecraft", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "versecraft", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	ReviewsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "versecraft", Name: "reviews_created_total", Help: "Number of reviews successfully created."},
	)
	NotificationsFanout = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "versecraft", Name: "notifications_fanout_total", Help: "Per-follower fan-out outcomes."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(ReviewsCreated)
	reg.MustRegister(NotificationsFanout)
}
