// Package condition implements the composable predicate each destination
// router uses to decide whether an event should be delivered, given the
// previous event that destination itself already delivered for the same
// earthquake.
package condition

import "tina/internal/eew"

// Condition is a predicate (latest, previous?) -> bool. previous is the
// router-local notion of "last event we delivered for this id", not the
// global last event (see ValueCondition for the fields that depend on it).
type Condition interface {
	IsSatisfied(latest, previous *eew.Event) bool
}

// Constant always evaluates to the same value.
type Constant bool

func (c Constant) IsSatisfied(*eew.Event, *eew.Event) bool { return bool(c) }

// Disjunctive is true iff any clause is true. An empty clause list is
// false.
type Disjunctive []Condition

func (d Disjunctive) IsSatisfied(latest, previous *eew.Event) bool {
	for _, clause := range d {
		if clause.IsSatisfied(latest, previous) {
			return true
		}
	}
	return false
}

// ValueCondition is a bundle of optional tri-state predicates; every
// present field ANDs into the result, absent fields are don't-care. A
// ValueCondition with every field unset is true for any input.
type ValueCondition struct {
	First                *bool
	Succeeding           *bool
	Alert                *bool
	Last                 *bool
	Cancel               *bool
	Drill                *bool
	Test                 *bool
	PhaseChanged         *bool
	EpicenterNameChanged *bool
	MagnitudeOver        *float32
	IntensityOver        *eew.IntensityClass
	IntensityUp          *int
	IntensityDown        *int
}

func (v *ValueCondition) IsSatisfied(latest, previous *eew.Event) bool {
	if v.First != nil && *v.First != (previous == nil) {
		return false
	}
	if v.Succeeding != nil && *v.Succeeding != (previous != nil) {
		return false
	}
	if v.Alert != nil && *v.Alert != isPhase(latest, eew.PhaseAlert) {
		return false
	}
	if v.Last != nil && *v.Last != latest.IsLast() {
		return false
	}
	if v.Cancel != nil && *v.Cancel != isPhase(latest, eew.PhaseCancel) {
		return false
	}
	if v.Drill != nil && *v.Drill != latest.IsDrill() {
		return false
	}
	if v.Test != nil && *v.Test != latest.IsTestOrReference() {
		return false
	}
	if v.PhaseChanged != nil {
		if previous == nil {
			return false
		}
		if *v.PhaseChanged != (phaseRank(latest) != phaseRank(previous)) {
			return false
		}
	}
	if v.EpicenterNameChanged != nil {
		if latest.Detail == nil || previous == nil || previous.Detail == nil {
			return false
		}
		if *v.EpicenterNameChanged != (latest.Detail.EpicenterName != previous.Detail.EpicenterName) {
			return false
		}
	}
	if v.MagnitudeOver != nil {
		if latest.Detail == nil || latest.Detail.Magnitude == nil {
			return false
		}
		if *latest.Detail.Magnitude < *v.MagnitudeOver {
			return false
		}
	}
	if v.IntensityOver != nil {
		if latest.Detail == nil || latest.Detail.MaximumIntensity == nil {
			return false
		}
		if latest.Detail.MaximumIntensity.Rank() < v.IntensityOver.Rank() {
			return false
		}
	}
	if v.IntensityUp != nil {
		if previous == nil {
			return false
		}
		if intensityRank(latest)-intensityRank(previous) < *v.IntensityUp {
			return false
		}
	}
	if v.IntensityDown != nil {
		if previous == nil {
			return false
		}
		if intensityRank(previous)-intensityRank(latest) < *v.IntensityDown {
			return false
		}
	}
	return true
}

func isPhase(e *eew.Event, want eew.Phase) bool {
	p, ok := e.Phase()
	return ok && p == want
}

// phaseRank gives phase_changed a comparable value, distinguishing "no
// phase" (-1) from every real Phase value (0..3).
func phaseRank(e *eew.Event) int {
	p, ok := e.Phase()
	if !ok {
		return -1
	}
	return int(p)
}

// intensityRank is the maximum-intensity rank of e's detail, or -1 when
// the event or its detail/maximum-intensity is absent (including a nil
// event, which stands for "no previous event").
func intensityRank(e *eew.Event) int {
	if e == nil || e.Detail == nil || e.Detail.MaximumIntensity == nil {
		return -1
	}
	return e.Detail.MaximumIntensity.Rank()
}
