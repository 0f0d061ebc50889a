// Package metrics holds the Prometheus collectors of the authorization
// server. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pesu_oauth2"

type Metrics struct {
	registry *prometheus.Registry

	tokensIssued   *prometheus.CounterVec
	tokenErrors    *prometheus.CounterVec
	consent        *prometheus.CounterVec
	securityEvents *prometheus.CounterVec
	logins         *prometheus.CounterVec
	resource       *prometheus.CounterVec
	bridgeLatency  prometheus.Histogram
}

// New builds the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token pairs issued, by grant type.",
		}, []string{"grant_type"}),
		tokenErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_errors_total",
			Help:      "Rejected token requests, by grant type and OAuth2 error code.",
		}, []string{"grant_type", "error"}),
		consent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_decisions_total",
			Help:      "Owner consent decisions.",
		}, []string{"decision"}),
		securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Replay attempts and other security relevant events.",
		}, []string{"event"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Owner login attempts through the identity bridge.",
		}, []string{"result"}),
		resource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_requests_total",
			Help:      "Protected resource requests, by outcome.",
		}, []string{"result"}),
		bridgeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_bridge_duration_seconds",
			Help:      "Latency of identity bridge authentication calls.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 16},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tokensIssued,
		m.tokenErrors,
		m.consent,
		m.securityEvents,
		m.logins,
		m.resource,
		m.bridgeLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) TokenIssued(grantType string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(grantType).Inc()
}

func (m *Metrics) TokenRejected(grantType, code string) {
	if m == nil {
		return
	}
	m.tokenErrors.WithLabelValues(grantType, code).Inc()
}

func (m *Metrics) ConsentDecision(approved bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if approved {
		decision = "approve"
	}
	m.consent.WithLabelValues(decision).Inc()
}

func (m *Metrics) SecurityEvent(event string) {
	if m == nil {
		return
	}
	m.securityEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ResourceRequest(result string) {
	if m == nil {
		return
	}
	m.resource.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveBridge(d time.Duration) {
	if m == nil {
		return
	}
	m.bridgeLatency.Observe(d.Seconds())
}
