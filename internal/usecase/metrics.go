package usecase

import "github.com/prometheus/client_golang/prometheus"

var (
	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_status_transitions_total",
			Help: "Committed booking and payment status transitions",
		},
		[]string{"entity", "from", "to"},
	)

	webhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_webhook_events_total",
			Help: "Processed gateway webhook deliveries by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	invoiceResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_invoice_requests_total",
			Help: "Invoice creation attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(statusTransitions, webhookOutcomes, invoiceResults)
}

func recordTransition(entity, from, to string) {
	statusTransitions.WithLabelValues(entity, from, to).Inc()
}
