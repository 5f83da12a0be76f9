package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry *prometheus.Registry
	turns    *prometheus.CounterVec
	failures *prometheus.CounterVec
	latency  prometheus.Histogram
	actions  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floorbot",
			Name:      "chat_turns_total",
			Help:      "Completed chat turns by intent classification",
		}, []string{"intent"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floorbot",
			Name:      "chat_failures_total",
			Help:      "Failed chat turns by HTTP status code",
		}, []string{"code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floorbot",
			Name:      "chat_turn_seconds",
			Help:      "Chat turn latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floorbot",
			Name:      "recommended_actions_total",
			Help:      "Recommended sales actions",
		}, []string{"action"}),
	}

	m.registry.MustRegister(
		m.turns,
		m.failures,
		m.latency,
		m.actions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
