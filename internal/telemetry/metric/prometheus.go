package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradegate"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Request defense
	DefenseVerdicts *prometheus.CounterVec

	// Authentication
	AuthFailures  *prometheus.CounterVec
	LoginAttempts *prometheus.CounterVec

	// Credential vault
	VaultOperations *prometheus.CounterVec

	// Webhook
	WebhookSignals *prometheus.CounterVec

	// Events
	EventsPublished *prometheus.CounterVec

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus the application metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		DefenseVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defense_verdicts_total",
			Help:      "Request defense verdicts by stage and outcome.",
		}, []string{"stage", "outcome"}),
		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected bearer tokens by reason.",
		}, []string{"reason"}),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		VaultOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vault_operations_total",
			Help:      "Credential vault operations by op and result.",
		}, []string{"op", "result"}),
		WebhookSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_signals_total",
			Help:      "Webhook signals by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Published events by topic and result.",
		}, []string{"topic", "result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		r.DefenseVerdicts,
		r.AuthFailures,
		r.LoginAttempts,
		r.VaultOperations,
		r.WebhookSignals,
		r.EventsPublished,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

// Registerer exposes the underlying registry for components that register
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler returns the /metrics handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveVerdict records a defense pipeline outcome.
func (r *Registry) ObserveVerdict(stage, outcome string) {
	r.DefenseVerdicts.WithLabelValues(stage, outcome).Inc()
}

// RecordAuthFailure records a rejected bearer token.
func (r *Registry) RecordAuthFailure(reason string) {
	r.AuthFailures.WithLabelValues(reason).Inc()
}

// RecordLogin records a login attempt.
func (r *Registry) RecordLogin(result string) {
	r.LoginAttempts.WithLabelValues(result).Inc()
}

// RecordVaultOp records a vault encrypt or decrypt.
func (r *Registry) RecordVaultOp(op string, err error) {
	r.VaultOperations.WithLabelValues(op, result(err)).Inc()
}

// RecordSignal records a webhook outcome.
func (r *Registry) RecordSignal(res string) {
	r.WebhookSignals.WithLabelValues(res).Inc()
}

// RecordEvent records an event publish.
func (r *Registry) RecordEvent(topic string, err error) {
	r.EventsPublished.WithLabelValues(topic, result(err)).Inc()
}

// ObserveRequest records an HTTP request.
func (r *Registry) ObserveRequest(method, status string, seconds float64) {
	r.RequestsTotal.WithLabelValues(method, status).Inc()
	r.RequestDuration.WithLabelValues(method, status).Observe(seconds)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
