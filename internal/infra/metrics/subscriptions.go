package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		autoEnrollmentsTotal,
		renewalsTotal,
		reactivatedListingsTotal,
	)
}

var (
	autoEnrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starter_auto_enrollments_total",
			Help: "Starter-plan auto-enrollments by result (created/lost_race).",
		},
		[]string{"result"},
	)

	renewalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_renewals_total",
			Help: "Successful subscription renewals/reactivations.",
		},
	)

	reactivatedListingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reactivated_listings_total",
			Help: "Draft listings moved back to active by renewals.",
		},
	)
)

func IncAutoEnrollment(result string) {
	autoEnrollmentsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRenewal() { renewalsTotal.Inc() }

func AddReactivatedListings(n int) {
	if n > 0 {
		reactivatedListingsTotal.Add(float64(n))
	}
}
