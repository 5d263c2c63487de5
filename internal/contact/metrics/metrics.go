package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalid       = "invalid"
	OutcomeCaptcha       = "captcha_failed"
	OutcomeUnverified    = "unverified_target"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeError         = "error"
)

type Metrics struct {
	Submissions       *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	VisibilityChanges prometheus.Counter
	NotifyFailures    prometheus.Counter
}

// New registers the contact collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierhub_contact_submissions_total",
			Help: "Contact request submissions by outcome",
		}, []string{"outcome", "buyer"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierhub_contact_transitions_total",
			Help: "Contact request status changes by target status and whether an admin override forced them",
		}, []string{"status", "override"}),
		VisibilityChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_contact_visibility_changes_total",
			Help: "Company contact visibility changes",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierhub_contact_notify_failures_total",
			Help: "Notifications that could not be queued after a contact change",
		}),
	}
}

// IncrementSubmission records one submission. buyer distinguishes signed-in
// buyers from anonymous visitors.
func (m *Metrics) IncrementSubmission(outcome string, buyer bool) {
	if m != nil {
		kind := "anonymous"
		if buyer {
			kind = "buyer"
		}
		m.Submissions.WithLabelValues(outcome, kind).Inc()
	}
}

func (m *Metrics) IncrementTransition(status string, override bool) {
	if m != nil {
		forced := "false"
		if override {
			forced = "true"
		}
		m.Transitions.WithLabelValues(status, forced).Inc()
	}
}

func (m *Metrics) IncrementVisibilityChange() {
	if m != nil {
		m.VisibilityChanges.Inc()
	}
}

func (m *Metrics) IncrementNotifyFailure() {
	if m != nil {
		m.NotifyFailures.Inc()
	}
}
