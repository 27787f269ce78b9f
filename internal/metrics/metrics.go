package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the order/payment pipeline
var (
	OrdersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created, by payment method",
		},
		[]string{"payment_method"},
	)

	IPNCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ipn_callbacks_total",
			Help: "Total number of gateway IPN callbacks received, by outcome",
		},
		[]string{"outcome"},
	)

	ReturnCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "return_callbacks_total",
			Help: "Total number of browser return redirects, by verdict",
		},
		[]string{"verdict"},
	)

	FulfillmentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_transitions_total",
			Help: "Total number of fulfillment status transitions applied",
		},
		[]string{"target"},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(OrdersCreatedTotal)
	prometheus.MustRegister(IPNCallbacksTotal)
	prometheus.MustRegister(ReturnCallbacksTotal)
	prometheus.MustRegister(FulfillmentTransitionsTotal)
}
