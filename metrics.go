package auth

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes prometheus counters for auth activity. It implements
// ActivitySink so it can be plugged wherever events are emitted.
type Metrics struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	gateOutcomes  *prometheus.CounterVec
}

var _ ActivitySink = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on reg when given.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_registrations_total",
				Help: "Total number of registration attempts by result",
			},
			[]string{"result"},
		),
		gateOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_token_validations_total",
				Help: "Bearer token validations by outcome and rejection reason",
			},
			[]string{"outcome", "reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(m)
	}

	return m
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.logins.Describe(ch)
	m.registrations.Describe(ch)
	m.gateOutcomes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.logins.Collect(ch)
	m.registrations.Collect(ch)
	m.gateOutcomes.Collect(ch)
}

// Record implements ActivitySink.
func (m *Metrics) Record(_ context.Context, event ActivityEvent) error {
	if m == nil {
		return nil
	}

	switch event.EventType {
	case ActivityEventLoginSuccess:
		m.logins.WithLabelValues("success").Inc()
	case ActivityEventLoginFailure:
		m.logins.WithLabelValues("failure").Inc()
	case ActivityEventUserRegistered:
		m.registrations.WithLabelValues("created").Inc()
	case ActivityEventRegistrationRejected:
		m.registrations.WithLabelValues(event.Reason).Inc()
	case ActivityEventTokenAccepted:
		m.gateOutcomes.WithLabelValues("authenticated", "none").Inc()
	case ActivityEventTokenRejected:
		m.gateOutcomes.WithLabelValues("rejected", event.Reason).Inc()
	}

	return nil
}
