package router

import "tina/internal/telemetry/metrics"

// Metrics holds the per-router counters, labeled by router name so one
// instrument set serves every destination.
type Metrics struct {
	Filtered  metrics.Counter
	Delivered metrics.Counter
	Dropped   metrics.Counter
}

// NewMetrics registers the router counters on p.
func NewMetrics(p metrics.Provider) *Metrics {
	counter := func(name, help string) metrics.Counter {
		return p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "tina",
			Subsystem: "router",
			Name:      name,
			Help:      help,
			Labels:    []string{"router"},
		}})
	}
	return &Metrics{
		Filtered:  counter("filtered_total", "Events rejected by the destination condition."),
		Delivered: counter("delivered_total", "Events handed to the destination worker."),
		Dropped:   counter("dropped_total", "Events dropped because the worker channel was full."),
	}
}

func (m *Metrics) filtered(name string) {
	if m != nil {
		m.Filtered.Inc(1, name)
	}
}

func (m *Metrics) delivered(name string) {
	if m != nil {
		m.Delivered.Inc(1, name)
	}
}

func (m *Metrics) dropped(name string) {
	if m != nil {
		m.Dropped.Inc(1, name)
	}
}
