package eew

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntensityClassFromNumericIsMonotonic(t *testing.T) {
	cases := []struct {
		x    float32
		want IntensityClass
	}{
		{-1, IntensityZero},
		{0.4, IntensityZero},
		{0.5, IntensityOne},
		{1.4, IntensityOne},
		{4.9, IntensityFiveLower},
		{4.99, IntensityFiveLower},
		{5.4, IntensityFiveUpper},
		{5.5, IntensitySixLower},
		{5.9, IntensitySixLower},
		{6.0, IntensitySixUpper},
		{6.4, IntensitySixUpper},
		{6.5, IntensitySeven},
		{9.0, IntensitySeven},
	}
	prevRank := -1
	for _, c := range cases {
		got := NewIntensityClassFromNumeric(c.x)
		assert.Equalf(t, c.want, got, "NewIntensityClassFromNumeric(%v)", c.x)
		assert.GreaterOrEqualf(t, got.Rank(), prevRank, "monotonicity broke at x=%v", c.x)
		prevRank = got.Rank()
	}
}

func TestPhaseDerivation(t *testing.T) {
	alert := WarningStatusAlert
	forecast := WarningStatusForecast

	cancelEvent := &Event{Kind: KindCancel}
	p, ok := cancelEvent.Phase()
	assert.True(t, ok)
	assert.Equal(t, PhaseCancel, p)

	alertEvent := &Event{Kind: KindNormal, Detail: &Detail{WarningStatus: alert}}
	p, ok = alertEvent.Phase()
	assert.True(t, ok)
	assert.Equal(t, PhaseAlert, p)

	fastForecast := &Event{Kind: KindNormal, IssuePattern: IssuePatternLowAccuracy, Detail: &Detail{WarningStatus: forecast}}
	p, ok = fastForecast.Phase()
	assert.True(t, ok)
	assert.Equal(t, PhaseFastForecast, p)

	forecastHA := &Event{Kind: KindNormal, IssuePattern: IssuePatternHighAccuracy, Detail: &Detail{WarningStatus: forecast}}
	p, ok = forecastHA.Phase()
	assert.True(t, ok)
	assert.Equal(t, PhaseForecast, p)
}

func TestIsSucceededBy(t *testing.T) {
	base := &Event{ID: "A", Number: 2, Kind: KindNormal, Detail: &Detail{WarningStatus: WarningStatusForecast}, IssuePattern: IssuePatternHighAccuracy}

	laterNumber := &Event{ID: "A", Number: 3, Kind: KindNormal, Detail: &Detail{WarningStatus: WarningStatusForecast}, IssuePattern: IssuePatternHighAccuracy}
	assert.True(t, base.IsSucceededBy(laterNumber))

	sameNumberCancel := &Event{ID: "A", Number: 2, Kind: KindCancel}
	assert.True(t, base.IsSucceededBy(sameNumberCancel))

	sameNumberNonCancel := &Event{ID: "A", Number: 2, Kind: KindNormal, Detail: &Detail{WarningStatus: WarningStatusForecast}, IssuePattern: IssuePatternHighAccuracy}
	assert.False(t, base.IsSucceededBy(sameNumberNonCancel))

	alreadyCancel := &Event{ID: "A", Number: 2, Kind: KindCancel}
	assert.False(t, alreadyCancel.IsSucceededBy(sameNumberNonCancel))

	differentID := &Event{ID: "B", Number: 99, Kind: KindCancel}
	assert.False(t, base.IsSucceededBy(differentID))
}

func TestPredicates(t *testing.T) {
	e := &Event{Status: StatusLastWithCorrection, Kind: KindDrill, IssuePattern: IssuePatternHighAccuracy}
	assert.True(t, e.IsLast())
	assert.True(t, e.IsDrill())
	assert.False(t, e.IsTestOrReference())
	assert.True(t, e.IsHighAccuracy())
}
