package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tina/internal/condition"
	"tina/internal/eew"
)

func TestRouterFiltersOnCondition(t *testing.T) {
	r := New("dest", condition.Constant(false), nil)
	r.Emit(context.Background(), &eew.Event{ID: "A"})
	assert.Equal(t, 0, r.Len())
}

func TestRouterForwardsAcceptedEvents(t *testing.T) {
	r := New("dest", condition.Constant(true), nil)
	e := &eew.Event{ID: "A"}
	r.Emit(context.Background(), e)

	require.Equal(t, 1, r.Len())
	d := <-r.Deliveries()
	assert.Same(t, e, d.Latest)
	assert.Nil(t, d.Previous)
}

func TestRouterPreviousIsLastAdmittedNotLastGlobal(t *testing.T) {
	threshold := eew.IntensityThree
	r := New("dest", &condition.ValueCondition{IntensityOver: &threshold}, nil)

	withIntensity := func(c eew.IntensityClass) *eew.Event {
		return &eew.Event{ID: "A", Detail: &eew.Detail{MaximumIntensity: &c}}
	}

	r.Emit(context.Background(), withIntensity(eew.IntensityOne))   // filtered, never cached
	r.Emit(context.Background(), withIntensity(eew.IntensityFour))  // admitted, previous=nil
	r.Emit(context.Background(), withIntensity(eew.IntensityTwo))   // filtered, never cached
	third := withIntensity(eew.IntensitySeven)
	r.Emit(context.Background(), third) // admitted; previous must be the Four, not the filtered Two

	drained := drainAll(r)
	require.Len(t, drained, 2)
	assert.Nil(t, drained[0].Previous)
	require.NotNil(t, drained[1].Previous)
	assert.Equal(t, eew.IntensityFour, *drained[1].Previous.Detail.MaximumIntensity)
}

func drainAll(r *Router) []Delivery {
	var out []Delivery
	for {
		select {
		case d := <-r.Deliveries():
			out = append(out, d)
		default:
			return out
		}
	}
}

func TestRouterDropsOnFullChannelWithoutBlocking(t *testing.T) {
	r := New("dest", condition.Constant(true), nil)
	r.out = make(chan Delivery, 1)

	r.Emit(context.Background(), &eew.Event{ID: "A"})
	r.Emit(context.Background(), &eew.Event{ID: "B"}) // must not block

	assert.Equal(t, 1, r.Len())
}

type countingCounter struct {
	n int
}

func (c *countingCounter) Inc(delta float64, labels ...string) { c.n += int(delta) }

func TestRouterCountsFilteredDeliveredAndDropped(t *testing.T) {
	filtered := &countingCounter{}
	delivered := &countingCounter{}
	dropped := &countingCounter{}
	m := &Metrics{Filtered: filtered, Delivered: delivered, Dropped: dropped}

	threshold := eew.IntensityThree
	r := New("dest", &condition.ValueCondition{IntensityOver: &threshold}, nil, WithMetrics(m))
	r.out = make(chan Delivery, 1)

	withIntensity := func(c eew.IntensityClass) *eew.Event {
		return &eew.Event{ID: "A", Detail: &eew.Detail{MaximumIntensity: &c}}
	}

	r.Emit(context.Background(), withIntensity(eew.IntensityOne))   // filtered
	r.Emit(context.Background(), withIntensity(eew.IntensityFour))  // delivered
	r.Emit(context.Background(), withIntensity(eew.IntensitySeven)) // channel full, dropped

	assert.Equal(t, 1, filtered.n)
	assert.Equal(t, 1, delivered.n)
	assert.Equal(t, 1, dropped.n)
}

func ptr[T any](v T) *T { return &v }
