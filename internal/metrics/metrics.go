package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the auth counters on a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	logouts     *prometheus.CounterVec
	gateDenials *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Refresh-token rotations by result.",
		}, []string{"result"}),
		logouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logouts_total",
			Help: "Logout calls by result.",
		}, []string{"result"}),
		gateDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_gate_denials_total",
			Help: "Requests rejected by the access gate, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Logout(result string) {
	if m != nil {
		m.logouts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) GateDenied(reason string) {
	if m != nil {
		m.gateDenials.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
