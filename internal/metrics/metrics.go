// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnnotationCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibecheck_annotation_calls_total",
			Help: "AI annotation calls by operation.",
		},
		[]string{"op"},
	)

	AnnotationFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibecheck_annotation_fallbacks_total",
			Help: "AI annotation calls answered with the fixed fallback.",
		},
		[]string{"op"},
	)

	Actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibecheck_actions_total",
			Help: "Applied controller actions (register, send, reply, delete, share).",
		},
		[]string{"action"},
	)

	ActiveDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vibecheck_active_devices",
			Help: "Device controllers currently held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(AnnotationCalls)
	prometheus.MustRegister(AnnotationFallbacks)
	prometheus.MustRegister(Actions)
	prometheus.MustRegister(ActiveDevices)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
