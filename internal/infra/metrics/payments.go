package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		callbacksTotal,
		activationsTotal,
		paymentsRevenueTotal,
	)
}

var (
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Provider callbacks by outcome (completed/failed/unknown_key/replay).",
		},
		[]string{"outcome"},
	)

	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_activations_total",
			Help: "Cascading activations by kind (subscription/addon).",
		},
		[]string{"kind"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of completed payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncCallback(outcome string) {
	callbacksTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncActivation(kind string) {
	activationsTotal.WithLabelValues(norm(kind)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
