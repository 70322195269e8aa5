// README: Prometheus counters and gauges for the dispatch engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhaul",
			Name:      "bookings_created_total",
			Help:      "Count of bookings created by urgency tier.",
		},
		[]string{"urgency"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhaul",
			Name:      "booking_transitions_total",
			Help:      "Count of successful booking status transitions.",
		},
		[]string{"from", "to"},
	)

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhaul",
			Name:      "claim_attempts_total",
			Help:      "Count of accept attempts by outcome (won, already_accepted, vehicle_unavailable).",
		},
		[]string{"outcome"},
	)

	ratings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhaul",
			Name:      "ratings_total",
			Help:      "Count of ratings recorded by direction.",
		},
		[]string{"direction"},
	)

	eventFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "farmhaul",
			Name:      "event_publish_failures_total",
			Help:      "Count of domain events the sink failed to deliver.",
		},
	)

	stalePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "farmhaul",
			Name:      "stale_pending_bookings",
			Help:      "Pending bookings older than the configured threshold at the last monitor run.",
		},
	)

	nearbyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "farmhaul",
			Name:      "nearby_query_seconds",
			Help:      "Latency of radius queries against the geo index.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"kind"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, transitions, claims, ratings, eventFailures, stalePending, nearbyLatency)
	})
}

func IncBookingCreated(urgency string) {
	bookingsCreated.WithLabelValues(urgency).Inc()
}

func IncTransition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

func IncClaim(outcome string) {
	claims.WithLabelValues(outcome).Inc()
}

func IncRating(direction string) {
	ratings.WithLabelValues(direction).Inc()
}

func IncEventFailure() {
	eventFailures.Inc()
}

func SetStalePending(n int) {
	stalePending.Set(float64(n))
}

func ObserveNearby(kind string, seconds float64) {
	nearbyLatency.WithLabelValues(kind).Observe(seconds)
}
