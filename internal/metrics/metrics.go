// Package metrics exposes Prometheus collectors for the image pipeline.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const _namespace = "reverie"

// Metrics groups the collectors updated by providers, the preloader and the rotator
type Metrics struct {
	providerFetches *prometheus.CounterVec
	fallbacks       prometheus.Counter
	probes          *prometheus.CounterVec
	rotations       *prometheus.CounterVec
	loads           *prometheus.CounterVec
	images          prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "provider_fetches_total",
			Help:      "Provider fetches by provider kind and outcome.",
		}, []string{"kind", "outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Dispatches that fell back to the default provider.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "preload_probes_total",
			Help:      "Preload probes by result.",
		}, []string{"result"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "rotations_total",
			Help:      "Image advances by trigger.",
		}, []string{"trigger"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "loads_total",
			Help:      "Repository loads by outcome.",
		}, []string{"outcome"}),
		images: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: _namespace,
			Name:      "images",
			Help:      "Images in the current rotation.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.providerFetches, m.fallbacks, m.probes, m.rotations, m.loads, m.images)
	}
	return m
}

// ProviderFetch records one adapter call; an empty result counts as "empty"
func (m *Metrics) ProviderFetch(kind string, n int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if n == 0 {
		outcome = "empty"
	}
	m.providerFetches.WithLabelValues(kind, outcome).Inc()
}

// ProviderPanic records an adapter call that panicked
func (m *Metrics) ProviderPanic(kind string) {
	if m == nil {
		return
	}
	m.providerFetches.WithLabelValues(kind, "panic").Inc()
}

// Fallback records a dispatch to the default provider
func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// Probe records a preload probe result
func (m *Metrics) Probe(loaded bool) {
	if m == nil {
		return
	}
	result := "loaded"
	if !loaded {
		result = "failed"
	}
	m.probes.WithLabelValues(result).Inc()
}

// Rotation records an advance caused by trigger ("tick", "next", "prev")
func (m *Metrics) Rotation(trigger string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(trigger).Inc()
}

// Load records a completed load with the resulting image count
func (m *Metrics) Load(outcome string, images int) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(outcome).Inc()
	if outcome != "superseded" {
		m.images.Set(float64(images))
	}
}
