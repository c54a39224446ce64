package destination

import "tina/internal/telemetry/metrics"

// Metrics holds the outbound delivery counters shared by every worker,
// labeled by destination name.
type Metrics struct {
	Delivered metrics.Counter
	Failed    metrics.Counter
}

// NewMetrics registers the worker counters on p.
func NewMetrics(p metrics.Provider) *Metrics {
	counter := func(name, help string) metrics.Counter {
		return p.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "tina",
			Subsystem: "destination",
			Name:      name,
			Help:      help,
			Labels:    []string{"destination"},
		}})
	}
	return &Metrics{
		Delivered: counter("delivered_total", "Outbound calls that reached the provider."),
		Failed:    counter("failed_total", "Outbound calls that ended in a delivery error."),
	}
}

func (m *Metrics) observe(name string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Failed.Inc(1, name)
		return
	}
	m.Delivered.Inc(1, name)
}
