// Package eew holds the domain model for a parsed Earthquake Early Warning
// report: the sum-typed event envelope, its optional detail block, and the
// derived predicates (phase, succession) used by the history, condition
// evaluator and formatters further down the pipeline.
package eew

import "time"

// IssuePattern distinguishes the four telegram variants JMA issues.
type IssuePattern int

const (
	IssuePatternIntensityOnly IssuePattern = iota
	IssuePatternLowAccuracy
	IssuePatternHighAccuracy
	IssuePatternCancel
)

func (p IssuePattern) String() string {
	switch p {
	case IssuePatternIntensityOnly:
		return "IntensityOnly"
	case IssuePatternLowAccuracy:
		return "LowAccuracy"
	case IssuePatternHighAccuracy:
		return "HighAccuracy"
	case IssuePatternCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// Source identifies which JMA regional center issued the telegram.
type Source int

const (
	SourceTokyo Source = iota
	SourceOsaka
)

func (s Source) String() string {
	if s == SourceOsaka {
		return "Osaka"
	}
	return "Tokyo"
}

// Kind distinguishes live reports from drills, cancellations and tests.
type Kind int

const (
	KindNormal Kind = iota
	KindDrill
	KindCancel
	KindDrillCancel
	KindReference
	KindTrial
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "Normal"
	case KindDrill:
		return "Drill"
	case KindCancel:
		return "Cancel"
	case KindDrillCancel:
		return "DrillCancel"
	case KindReference:
		return "Reference"
	case KindTrial:
		return "Trial"
	default:
		return "Unknown"
	}
}

// Status is the telegram's correction/finality marker.
type Status int

const (
	StatusNormal Status = iota
	StatusCorrection
	StatusCancelCorrection
	StatusLastWithCorrection
	StatusLast
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusCorrection:
		return "Correction"
	case StatusCancelCorrection:
		return "CancelCorrection"
	case StatusLastWithCorrection:
		return "LastWithCorrection"
	case StatusLast:
		return "Last"
	default:
		return "Unknown"
	}
}

// EpicenterAccuracy and DepthAccuracy share the same eight-grade scheme.
type EpicenterAccuracy int

const (
	EpicenterAccuracySingle EpicenterAccuracy = iota
	EpicenterAccuracyTerritory
	EpicenterAccuracyGridSearchLow
	EpicenterAccuracyGridSearchHigh
	EpicenterAccuracyNIEDLow
	EpicenterAccuracyNIEDHigh
	EpicenterAccuracyEPOSLow
	EpicenterAccuracyEPOSHigh
	EpicenterAccuracyUnknown
)

type DepthAccuracy int

const (
	DepthAccuracySingle DepthAccuracy = iota
	DepthAccuracyTerritory
	DepthAccuracyGridSearchLow
	DepthAccuracyGridSearchHigh
	DepthAccuracyNIEDLow
	DepthAccuracyNIEDHigh
	DepthAccuracyEPOSLow
	DepthAccuracyEPOSHigh
	DepthAccuracyUnknown
)

// MagnitudeAccuracy enumerates how the magnitude estimate was derived.
type MagnitudeAccuracy int

const (
	MagnitudeAccuracyNIED MagnitudeAccuracy = iota
	MagnitudeAccuracyPWave
	MagnitudeAccuracyPSMixed
	MagnitudeAccuracySWave
	MagnitudeAccuracyEPOS
	MagnitudeAccuracyLevel
	MagnitudeAccuracyUnknown
)

// EpicenterCategory is land vs. sea origin.
type EpicenterCategory int

const (
	EpicenterCategoryLand EpicenterCategory = iota
	EpicenterCategorySea
	EpicenterCategoryUnknown
)

// WarningStatus distinguishes a forecast from an issued alert.
type WarningStatus int

const (
	WarningStatusForecast WarningStatus = iota
	WarningStatusAlert
	WarningStatusUnknown
)

// IntensityChange and ChangeReason describe how this report's estimate
// moved relative to the previous one for the same earthquake.
type IntensityChange int

const (
	IntensityChangeSame IntensityChange = iota
	IntensityChangeUp
	IntensityChangeDown
	IntensityChangeUnknown
)

type ChangeReason int

const (
	ChangeReasonNothing ChangeReason = iota
	ChangeReasonMagnitude
	ChangeReasonEpicenter
	ChangeReasonMixed
	ChangeReasonDepth
	ChangeReasonPlum
	ChangeReasonUnknown
)

// WaveStatus tells whether the P/S wave has reached a given area yet.
type WaveStatus int

const (
	WaveStatusUnreached WaveStatus = iota
	WaveStatusReached
	WaveStatusPlum
	WaveStatusUnknown
)

// IntensityClass is the ten-grade JMA seismic intensity scale, totally
// ordered by Rank.
type IntensityClass int

const (
	IntensityZero IntensityClass = iota
	IntensityOne
	IntensityTwo
	IntensityThree
	IntensityFour
	IntensityFiveLower
	IntensityFiveUpper
	IntensitySixLower
	IntensitySixUpper
	IntensitySeven
)

// Rank returns the total-order rank used for comparisons (0..9).
func (c IntensityClass) Rank() int { return int(c) }

// NewIntensityClassFromNumeric derives an IntensityClass from a raw numeric
// intensity value using the closed-half-open JMA bands.
func NewIntensityClassFromNumeric(x float32) IntensityClass {
	switch {
	case x < 0.5:
		return IntensityZero
	case x < 1.5:
		return IntensityOne
	case x < 2.5:
		return IntensityTwo
	case x < 3.5:
		return IntensityThree
	case x < 4.5:
		return IntensityFour
	case x < 5.0:
		return IntensityFiveLower
	case x < 5.5:
		return IntensityFiveUpper
	case x < 6.0:
		return IntensitySixLower
	case x < 6.5:
		return IntensitySixUpper
	default:
		return IntensitySeven
	}
}

func (c IntensityClass) String() string {
	switch c {
	case IntensityZero:
		return "0"
	case IntensityOne:
		return "1"
	case IntensityTwo:
		return "2"
	case IntensityThree:
		return "3"
	case IntensityFour:
		return "4"
	case IntensityFiveLower:
		return "5-"
	case IntensityFiveUpper:
		return "5+"
	case IntensitySixLower:
		return "6-"
	case IntensitySixUpper:
		return "6+"
	case IntensitySeven:
		return "7"
	default:
		return "?"
	}
}

// JapaneseLabel renders the class the way JMA bulletins do (震度5弱 etc).
func (c IntensityClass) JapaneseLabel() string {
	switch c {
	case IntensityZero:
		return "震度0"
	case IntensityOne:
		return "震度1"
	case IntensityTwo:
		return "震度2"
	case IntensityThree:
		return "震度3"
	case IntensityFour:
		return "震度4"
	case IntensityFiveLower:
		return "震度5弱"
	case IntensityFiveUpper:
		return "震度5強"
	case IntensitySixLower:
		return "震度6弱"
	case IntensitySixUpper:
		return "震度6強"
	case IntensitySeven:
		return "震度7"
	default:
		return "震度不明"
	}
}

// AreaEntry is one row of the optional EBI sub-block: the expected
// intensity range and wave arrival state for a single named area.
type AreaEntry struct {
	AreaName         string
	MinimumIntensity IntensityClass
	MaximumIntensity *IntensityClass
	ReachAt          *time.Time
	WarningStatus    WarningStatus
	WaveStatus       WaveStatus
}

// Detail is the full-report body, present on every Event except cancels.
type Detail struct {
	EpicenterName    string
	Latitude         float32
	Longitude        float32
	Depth            *float32
	Magnitude        *float32
	MaximumIntensity *IntensityClass

	EpicenterAccuracy EpicenterAccuracy
	DepthAccuracy     DepthAccuracy
	MagnitudeAccuracy MagnitudeAccuracy

	EpicenterCategory EpicenterCategory
	WarningStatus     WarningStatus
	IntensityChange   IntensityChange
	ChangeReason      ChangeReason
	Plum              bool

	AreaInfo []AreaEntry
}

// Event is a single parsed EEW report. Detail is present iff the issue
// pattern is not Cancel: IssuePattern == IssuePatternCancel implies Detail ==
// nil, and every other IssuePattern implies Detail != nil. Number is the
// telegram sequence number assigned by the issuer and is always >= 1.
type Event struct {
	IssuePattern IssuePattern
	Source       Source
	Kind         Kind
	IssuedAt     time.Time
	OccurredAt   time.Time
	ID           string
	Status       Status
	Number       uint32
	Detail       *Detail
}

// IsCancelReport reports whether this event's shape is a cancellation:
// either the pattern or the kind marks it so. Detail is nil by construction
// only when the pattern is Cancel; a report whose kind alone marks it as a
// cancellation keeps the detail block parsed from its telegram.
func (e *Event) IsCancelReport() bool {
	return e.IssuePattern == IssuePatternCancel || e.Kind == KindCancel || e.Kind == KindDrillCancel
}
