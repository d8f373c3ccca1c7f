// Package metrics exposes access-decision and subscription-fetch counters to Prometheus.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "vendora"
	// maxLabelLen caps route and feature keys used as label values.
	maxLabelLen = 64
)

func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

// Metrics owns its registry so tests and multiple servers do not collide on
// the global default.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal       *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	routeDecisions   *prometheus.CounterVec
	featureDecisions *prometheus.CounterVec
	refreshRuns      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "fetch_total",
				Help:      "Subscription record fetches by outcome",
			},
			[]string{"outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "fetch_duration_seconds",
				Help:      "Subscription record fetch latency by outcome",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		routeDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "guard",
				Name:      "route_decisions_total",
				Help:      "Route guard decisions by route and state",
			},
			[]string{"route", "state"},
		),
		featureDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "guard",
				Name:      "feature_decisions_total",
				Help:      "Feature guard decisions by feature and state",
			},
			[]string{"feature", "state"},
		),
		refreshRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "refresh_runs_total",
				Help:      "Bulk scope refreshes by trigger and result",
			},
			[]string{"trigger", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetchTotal,
		m.fetchDuration,
		m.routeDecisions,
		m.featureDecisions,
		m.refreshRuns,
	)
	return m
}

// ObserveFetch implements subscription.FetchObserver.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRouteDecision(route, state string) {
	m.routeDecisions.WithLabelValues(sanitizeLabel(route), state).Inc()
}

func (m *Metrics) ObserveFeatureDecision(feature, state string) {
	m.featureDecisions.WithLabelValues(sanitizeLabel(feature), state).Inc()
}

// ObserveRefresh records a scheduled or event-triggered bulk refresh.
func (m *Metrics) ObserveRefresh(trigger string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshRuns.WithLabelValues(trigger, result).Inc()
}

// RegisterScopeGauge exports the live scope count.
func (m *Metrics) RegisterScopeGauge(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscription",
			Name:      "scopes",
			Help:      "Session scopes currently held by the registry",
		},
		func() float64 { return float64(count()) },
	))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
