// Package metrics counts audit deliveries for the publisher and outbox relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "supplierhub/pkg/platform/audit"
)

type Metrics struct {
	Emitted       *prometheus.CounterVec
	Dropped       *prometheus.CounterVec
	Failed        *prometheus.CounterVec
	OutboxRelayed prometheus.Counter
	OutboxBacklog prometheus.Gauge
}

// New registers the audit collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierhub_audit_events_emitted_total",
			Help: "Audit events written to the store, by category",
		}, []string{"category"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierhub_audit_events_dropped_total",
			Help: "Audit events dropped because the async buffer was full, by category",
		}, []string{"category"}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierhub_audit_events_failed_total",
			Help: "Audit events the store rejected, by category",
		}, []string{"category"}),
		OutboxRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_audit_outbox_published_total",
			Help: "Outbox rows published to the broker",
		}),
		OutboxBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "supplierhub_audit_outbox_backlog",
			Help: "Outbox rows waiting to be published",
		}),
	}
}

func (m *Metrics) IncEmitted(category audit.EventCategory) {
	if m != nil {
		m.Emitted.WithLabelValues(string(category)).Inc()
	}
}

func (m *Metrics) IncDropped(category audit.EventCategory) {
	if m != nil {
		m.Dropped.WithLabelValues(string(category)).Inc()
	}
}

func (m *Metrics) IncFailed(category audit.EventCategory) {
	if m != nil {
		m.Failed.WithLabelValues(string(category)).Inc()
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.OutboxRelayed.Add(float64(n))
	}
}

func (m *Metrics) SetBacklog(n int) {
	if m != nil {
		m.OutboxBacklog.Set(float64(n))
	}
}
