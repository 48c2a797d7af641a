package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	OffersIssued     = prometheus.NewCounter(prometheus.CounterOpts{Name: "offers_issued_total", Help: "Offers created across all batches"})
	OffersExpired    = prometheus.NewCounter(prometheus.CounterOpts{Name: "offers_expired_total", Help: "Offers expired past the claim window"})
	ClaimsWon        = prometheus.NewCounter(prometheus.CounterOpts{Name: "offer_claims_won_total", Help: "Accept calls that won the shift"})
	ClaimsLost       = prometheus.NewCounter(prometheus.CounterOpts{Name: "offer_claims_lost_total", Help: "Accept calls that lost the race"})
	IdempotentReplays = prometheus.NewCounter(prometheus.CounterOpts{Name: "idempotent_replays_total", Help: "Responses served from the idempotency guard"})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{Name: "rate_limit_rejects_total", Help: "Requests rejected by the rate guard"})
	PublishFailures  = prometheus.NewCounter(prometheus.CounterOpts{Name: "event_publish_failures_total", Help: "Best effort event publishes that failed"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			OffersIssued,
			OffersExpired,
			ClaimsWon,
			ClaimsLost,
			IdempotentReplays,
			RateLimitRejects,
			PublishFailures,
		)
	})
	return promhttp.Handler()
}
