// Package router implements the per-destination gate sitting between the
// ingest supervisor and a destination worker: it applies a Condition
// against the destination's own delivery history and forwards accepted
// events without ever blocking the supervisor.
package router

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"tina/internal/collections"
	"tina/internal/condition"
	"tina/internal/eew"
	"tina/internal/telemetry/logging"
)

// Delivery is one accepted (latest, previous) pair handed to a worker.
// Previous is the last event that passed this router's condition for the
// same earthquake id, not the last event globally. DeliveryID is a fresh
// correlation id minted when the router admits the event, so one
// notification attempt can be grepped across the router's and worker's
// log lines.
type Delivery struct {
	DeliveryID string
	Latest     *eew.Event
	Previous   *eew.Event
}

const cacheCapacity = 256
const channelCapacity = 256

// Router gates events for a single destination.
type Router struct {
	name    string
	cond    condition.Condition
	cache   *collections.KeyedLRUMap[string, *eew.Event]
	out     chan Delivery
	logger  logging.Logger
	metrics *Metrics
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithMetrics attaches the shared router counters; nil leaves the router
// uninstrumented.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a Router named name, gating on cond, feeding a channel of
// the default capacity that a worker drains through Deliveries.
func New(name string, cond condition.Condition, logger logging.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = logging.New(nil)
	}
	r := &Router{
		name:   name,
		cond:   cond,
		cache:  collections.NewKeyedLRUMap[string, *eew.Event](cacheCapacity),
		out:    make(chan Delivery, channelCapacity),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the destination name this router was built for.
func (r *Router) Name() string { return r.name }

// Deliveries is the channel a worker drains admitted events from.
func (r *Router) Deliveries() <-chan Delivery { return r.out }

// Len and Cap expose the outbound channel's current fill for health
// probes, without letting callers read or write to it directly.
func (r *Router) Len() int { return len(r.out) }
func (r *Router) Cap() int { return cap(r.out) }

// Emit applies the router's condition to event against the last event
// this router itself admitted for the same id, and on acceptance tries a
// non-blocking send to the worker channel. A full channel is a drop, not
// a block: the supervisor must never stall because one destination is
// slow.
func (r *Router) Emit(ctx context.Context, event *eew.Event) {
	previous, _ := r.cache.Get(event.ID)

	if !r.cond.IsSatisfied(event, previous) {
		r.logger.DebugCtx(ctx, "event filtered", slog.String("router", r.name), slog.String("id", event.ID))
		r.metrics.filtered(r.name)
		return
	}

	r.cache.Upsert(event.ID, event)

	deliveryID := uuid.NewString()
	select {
	case r.out <- Delivery{DeliveryID: deliveryID, Latest: event, Previous: previous}:
		r.logger.DebugCtx(ctx, "event admitted", slog.String("router", r.name), slog.String("id", event.ID), slog.String("delivery", deliveryID))
		r.metrics.delivered(r.name)
	default:
		r.logger.WarnCtx(ctx, "destination channel full, dropping event", slog.String("router", r.name), slog.String("id", event.ID), slog.String("delivery", deliveryID))
		r.metrics.dropped(r.name)
	}
}
