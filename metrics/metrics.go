// Package metrics holds the site's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lockard_site"

// Metrics is a set of collectors registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	RefreshCycles   *prometheus.CounterVec
	RefreshSkipped  prometheus.Counter
	ConfigVersion   prometheus.Gauge
	AnalyticsEvents *prometheus.CounterVec
	Assessments     *prometheus.CounterVec
	Generations     *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_refresh_cycles_total",
			Help:      "Remote config refresh cycles by result.",
		}, []string{"result"}),
		RefreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_refresh_skipped_total",
			Help:      "Refresh cycles skipped because another was in flight.",
		}),
		ConfigVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "config_snapshot_version",
			Help:      "Version of the active config snapshot.",
		}),
		AnalyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Analytics events by sink and outcome.",
		}, []string{"sink", "outcome"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recaptcha_assessments_total",
			Help:      "reCAPTCHA assessments by action and outcome.",
		}, []string{"action", "outcome"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_generations_total",
			Help:      "Generative text requests by feature and outcome.",
		}, []string{"feature", "outcome"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RefreshCycles,
		m.RefreshSkipped,
		m.ConfigVersion,
		m.AnalyticsEvents,
		m.Assessments,
		m.Generations,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
