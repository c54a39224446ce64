package supervisor

import "tina/internal/telemetry/metrics"

// Metrics holds the ingest-path instruments: history accept/reject
// counts, drops on the ingest channel, the number of readers currently
// holding a live connection, and the reconnect backoff waits.
type Metrics struct {
	Accepted         metrics.Counter
	Rejected         metrics.Counter
	Dropped          metrics.Counter
	ReadersConnected metrics.Gauge
	BackoffWait      metrics.Histogram
}

// NewMetrics registers the supervisor instruments on p.
func NewMetrics(p metrics.Provider) *Metrics {
	common := func(name, help string) metrics.CommonOpts {
		return metrics.CommonOpts{Namespace: "tina", Subsystem: "ingest", Name: name, Help: help}
	}
	return &Metrics{
		Accepted:         p.NewCounter(metrics.CounterOpts{CommonOpts: common("accepted_total", "Events the history accepted.")}),
		Rejected:         p.NewCounter(metrics.CounterOpts{CommonOpts: common("rejected_total", "Events the history rejected as stale or duplicate.")}),
		Dropped:          p.NewCounter(metrics.CounterOpts{CommonOpts: common("dropped_total", "Events dropped because the ingest channel was full.")}),
		ReadersConnected: p.NewGauge(metrics.GaugeOpts{CommonOpts: common("readers_connected", "WNI readers currently holding an authenticated connection.")}),
		BackoffWait: p.NewHistogram(metrics.HistogramOpts{
			CommonOpts: common("backoff_wait_seconds", "Reconnect backoff waits per reader."),
			Buckets:    []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
	}
}

func (m *Metrics) accepted() {
	if m != nil {
		m.Accepted.Inc(1)
	}
}

func (m *Metrics) rejected() {
	if m != nil {
		m.Rejected.Inc(1)
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc(1)
	}
}

func (m *Metrics) readerConnected(delta float64) {
	if m != nil {
		m.ReadersConnected.Add(delta)
	}
}

func (m *Metrics) backoffWait(seconds float64) {
	if m != nil {
		m.BackoffWait.Observe(seconds)
	}
}
