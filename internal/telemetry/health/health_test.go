package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAggregatesWorstStatus(t *testing.T) {
	e := NewEvaluator(time.Minute,
		ProbeFunc(func(context.Context) ProbeResult { return Healthy("a") }),
		ProbeFunc(func(context.Context) ProbeResult { return Degraded("b", "near capacity") }),
	)
	snap := e.Evaluate(context.Background())
	assert.Equal(t, StatusDegraded, snap.Overall)
	require.Len(t, snap.Probes, 2)
}

func TestEvaluateUnhealthyDominates(t *testing.T) {
	e := NewEvaluator(time.Minute,
		ProbeFunc(func(context.Context) ProbeResult { return Degraded("a", "x") }),
		ProbeFunc(func(context.Context) ProbeResult { return Unhealthy("b", "down") }),
	)
	snap := e.Evaluate(context.Background())
	assert.Equal(t, StatusUnhealthy, snap.Overall)
}

func TestEvaluateNoProbesIsUnknown(t *testing.T) {
	e := NewEvaluator(time.Minute)
	snap := e.Evaluate(context.Background())
	assert.Equal(t, StatusUnknown, snap.Overall)
}

func TestEvaluateCachesWithinTTL(t *testing.T) {
	calls := 0
	e := NewEvaluator(time.Hour, ProbeFunc(func(context.Context) ProbeResult {
		calls++
		return Healthy("a")
	}))
	e.Evaluate(context.Background())
	e.Evaluate(context.Background())
	assert.Equal(t, 1, calls)
}

func TestForceInvalidateRecomputes(t *testing.T) {
	calls := 0
	e := NewEvaluator(time.Hour, ProbeFunc(func(context.Context) ProbeResult {
		calls++
		return Healthy("a")
	}))
	e.Evaluate(context.Background())
	e.ForceInvalidate()
	e.Evaluate(context.Background())
	assert.Equal(t, 2, calls)
}

func TestRegisterAddsProbeAfterConstruction(t *testing.T) {
	e := NewEvaluator(time.Minute)
	e.Register(ProbeFunc(func(context.Context) ProbeResult { return Unhealthy("late", "boom") }))
	snap := e.Evaluate(context.Background())
	assert.Equal(t, StatusUnhealthy, snap.Overall)
}

func TestChannelFillProbeDegradesNearCapacity(t *testing.T) {
	probe := ChannelFillProbe("ingest", func() (int, int) { return 9, 10 }, 0.8)
	result := probe.Check(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
}

func TestChannelFillProbeHealthyWhenFarFromCapacity(t *testing.T) {
	probe := ChannelFillProbe("ingest", func() (int, int) { return 1, 10 }, 0.8)
	result := probe.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
}

func TestChannelFillProbeZeroCapacityIsUnhealthy(t *testing.T) {
	probe := ChannelFillProbe("ingest", func() (int, int) { return 0, 0 }, 0.8)
	result := probe.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
}
