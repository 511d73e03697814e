package observe

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	updates *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

// NewMetrics registers observable counters on registry. A nil registry
// returns nil, which disables metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskman_observable_updates_total",
				Help: "Total number of values published by observable",
			},
			[]string{"name"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskman_observable_dropped_total",
				Help: "Total number of values discarded for slow subscribers",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		metrics.updates,
		metrics.dropped,
	)

	return metrics
}

func (m *Metrics) IncrementUpdates(name string) {
	if m != nil && m.updates != nil {
		m.updates.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) IncrementDropped(name string) {
	if m != nil && m.dropped != nil {
		m.dropped.WithLabelValues(name).Inc()
	}
}
