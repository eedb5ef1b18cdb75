package metrics

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager. Empty values keep the default.
type Option func(*Manager)

// WithNamespace sets the metric name prefix, "glwatch" by default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the middle part of pipeline metric names.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the latency buckets, in milliseconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = slices.Clone(buckets)
		}
	}
}

// WithRegistry registers collectors on registry instead of the default one.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithConstLabels attaches labels to every collector, e.g. an instance name
// when several books are analysed by one process.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(m *Manager) {
		if len(labels) > 0 {
			m.constLabels = labels
		}
	}
}
