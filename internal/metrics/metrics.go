package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics は決済まわりのカウンタをまとめる。
type Metrics struct {
	OrdersCreated     prometheus.Counter
	PaymentsProcessed *prometheus.CounterVec
	WebhooksReceived  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_created_total",
			Help:      "Number of pending orders created.",
		}),
		PaymentsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payments_processed_total",
			Help:      "Number of gateway charge outcomes by status.",
		}, []string{"status"}),
		WebhooksReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "webhooks_received_total",
			Help:      "Number of payment webhook notifications received.",
		}),
	}
}
