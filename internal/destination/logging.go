package destination

import (
	"context"
	"log/slog"

	"tina/internal/router"
	"tina/internal/telemetry/logging"
)

// LoggingWorker writes the full-detail dump of every delivered event at
// info level; it never filters or drops beyond what its router already
// decided.
type LoggingWorker struct {
	logger  logging.Logger
	metrics *Metrics
}

// SetMetrics attaches the shared delivery counters.
func (w *LoggingWorker) SetMetrics(m *Metrics) { w.metrics = m }

// NewLoggingWorker constructs a LoggingWorker writing through logger (or
// the default slog logger when nil).
func NewLoggingWorker(logger logging.Logger) *LoggingWorker {
	if logger == nil {
		logger = logging.New(nil)
	}
	return &LoggingWorker{logger: logger}
}

func (w *LoggingWorker) Run(ctx context.Context, deliveries <-chan router.Delivery) {
	RunLoop(ctx, deliveries, func(ctx context.Context, d router.Delivery) {
		w.logger.InfoCtx(ctx, FormatFull(d.Latest), slog.String("id", d.Latest.ID), slog.String("delivery", d.DeliveryID))
		w.metrics.observe("logging", nil)
	})
}
