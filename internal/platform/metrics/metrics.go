package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clientauth"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	LoginAttempts *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	TokensIssued  prometheus.Counter
	GateDecisions *prometheus.CounterVec
	FlowDuration  *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Account registrations by outcome",
		}, []string{"outcome"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Session tokens issued",
		}),
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Authentication gate decisions by state and reason",
		}, []string{"state", "reason"}),
		FlowDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_duration_seconds",
			Help:      "Latency of login and registration flows",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
	}
}

func (m *Metrics) ObserveLogin(outcome string, elapsed time.Duration) {
	m.LoginAttempts.WithLabelValues(outcome).Inc()
	m.FlowDuration.WithLabelValues("login").Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRegistration(outcome string, elapsed time.Duration) {
	m.Registrations.WithLabelValues(outcome).Inc()
	m.FlowDuration.WithLabelValues("register").Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementTokensIssued() {
	m.TokensIssued.Inc()
}

func (m *Metrics) ObserveGateDecision(state, reason string) {
	m.GateDecisions.WithLabelValues(state, reason).Inc()
}

// Handler exposes g in the Prometheus text format. A nil g uses the
// default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
