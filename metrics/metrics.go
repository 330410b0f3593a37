// Package metrics exposes Prometheus counters for the auth flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "buddy"

// Result labels shared by the auth counters.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInvalidPayload     = "invalid_payload"
	ResultAlreadyExists      = "already_exists"
	ResultError              = "error"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver so callers
// that do not care about metrics can pass nil.
type Metrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	tokensIssued  prometheus.Counter
	tokensEvicted prometheus.Counter
}

// New creates the auth counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Password login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Access token refresh attempts by result.",
		}, []string{"result"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "refresh_tokens_issued_total",
			Help:      "Refresh tokens added to user ledgers.",
		}),
		tokensEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "refresh_tokens_evicted_total",
			Help:      "Refresh tokens removed to keep ledgers within capacity.",
		}),
	}

	reg.MustRegister(m.registrations, m.logins, m.refreshes, m.tokensIssued, m.tokensEvicted)
	return m
}

func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) TokenIssued(evicted int64) {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
	if evicted > 0 {
		m.tokensEvicted.Add(float64(evicted))
	}
}
