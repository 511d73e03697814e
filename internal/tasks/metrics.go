package tasks

import "github.com/prometheus/client_golang/prometheus"

type operationMetrics struct {
	operations *prometheus.CounterVec
}

func newOperationMetrics(registry *prometheus.Registry) *operationMetrics {
	if registry == nil {
		return nil
	}

	metrics := &operationMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskman_operations_total",
				Help: "Total number of synchronizer operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	registry.MustRegister(metrics.operations)
	return metrics
}

func (m *operationMetrics) Observe(operation string, status Status) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, string(status.Kind)).Inc()
}
