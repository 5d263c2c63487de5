package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes recorded by the worker.
const (
	OutcomeSent         = "sent"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeDropped      = "dropped"
)

type Metrics struct {
	Deliveries   *prometheus.CounterVec
	SendDuration prometheus.Histogram
}

// New registers the notification collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierhub_notify_deliveries_total",
			Help: "Notification delivery attempts by template and outcome",
		}, []string{"template", "outcome"}),
		SendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "supplierhub_notify_send_duration_seconds",
			Help:    "Time spent handing one email to the mail relay",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) IncrementDelivery(template, outcome string) {
	if m != nil {
		m.Deliveries.WithLabelValues(template, outcome).Inc()
	}
}

func (m *Metrics) ObserveSend(seconds float64) {
	if m != nil {
		m.SendDuration.Observe(seconds)
	}
}
