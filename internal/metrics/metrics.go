// Package metrics exposes Prometheus counters for trade execution. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	TradesTotal        *prometheus.CounterVec
	TradeDuration      *prometheus.HistogramVec
	ApprovalsTotal     *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec
	GasFallbacksTotal  *prometheus.CounterVec
}

// New builds the metric set on a private registry that also carries the Go
// runtime and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "moonroute"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "executions_total",
			Help:      "Trade executions by venue, side, mode and outcome",
		}, []string{"venue", "side", "mode", "outcome"}),
		TradeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "duration_seconds",
			Help:      "Time from request to submitted hash, including approval",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"venue", "side"}),
		ApprovalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "approval",
			Name:      "checks_total",
			Help:      "Allowance checks by outcome (sufficient, confirmed, failed)",
		}, []string{"outcome"}),
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verify",
			Name:      "tokens_total",
			Help:      "Venue verifications by recommended venue and verified flag",
		}, []string{"venue", "verified"}),
		GasFallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gas",
			Name:      "fallbacks_total",
			Help:      "Gas estimation steps that used a fallback (limit, legacy, price)",
		}, []string{"stage"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Trade(venue, side, mode string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.TradesTotal.WithLabelValues(venue, side, mode, outcome).Inc()
	if success {
		m.TradeDuration.WithLabelValues(venue, side).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Approval(outcome string) {
	if m == nil {
		return
	}
	m.ApprovalsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Verification(venue string, verified bool) {
	if m == nil {
		return
	}
	v := "false"
	if verified {
		v = "true"
	}
	m.VerificationsTotal.WithLabelValues(venue, v).Inc()
}

func (m *Metrics) GasFallback(stage string) {
	if m == nil {
		return
	}
	m.GasFallbacksTotal.WithLabelValues(stage).Inc()
}
