package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsThrottled prometheus.Counter
	QuotaConsumed        prometheus.Counter
	QuotaExceeded        prometheus.Counter
	QuotaResets          prometheus.Counter
}

// New registers the ratelimit collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_ratelimit_submissions_throttled_total",
			Help: "Total number of contact submissions rejected by the per ip and email rate limit",
		}),
		QuotaConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_ratelimit_quota_consumed_total",
			Help: "Total number of weekly contact allowance units consumed",
		}),
		QuotaExceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_ratelimit_quota_exceeded_total",
			Help: "Total number of contact submissions rejected because the weekly allowance was spent",
		}),
		QuotaResets: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_ratelimit_quota_resets_total",
			Help: "Total number of weekly allowances reset by an administrator",
		}),
	}
}

func (m *Metrics) IncrementThrottled() {
	if m != nil {
		m.SubmissionsThrottled.Inc()
	}
}

func (m *Metrics) IncrementConsumed() {
	if m != nil {
		m.QuotaConsumed.Inc()
	}
}

func (m *Metrics) IncrementExceeded() {
	if m != nil {
		m.QuotaExceeded.Inc()
	}
}

func (m *Metrics) IncrementResets() {
	if m != nil {
		m.QuotaResets.Inc()
	}
}
