// Package telegram decodes the fixed-column JMA EEW telegram format into
// the domain model in internal/eew. Every field occupies a fixed byte
// offset; decoding is purely positional and never partially succeeds.
package telegram

import (
	"strconv"
	"strings"
	"time"

	"tina/internal/eew"
)

const minTelegramLength = 140

var jst = time.FixedZone("JST", 9*3600)

// Parse decodes a single JMA-format telegram. dicts supplies the epicenter
// and area code lookups; a missing code is a parse error, not a silent
// default.
func Parse(text []byte, dicts *Dictionaries) (*eew.Event, error) {
	if len(text) < minTelegramLength {
		return nil, newParseError(ErrTooShort, 0, "telegram shorter than 140 bytes")
	}

	pattern, err := parsePattern(text[0:2])
	if err != nil {
		return nil, err
	}

	source, err := parseSource(text[3:5])
	if err != nil {
		return nil, err
	}

	kind, err := parseKind(text[6:8])
	if err != nil {
		return nil, err
	}

	issuedAt, ok := parseDateTime(text[9:21])
	if !ok {
		return nil, newParseError(ErrInvalidIssueTime, 9, "")
	}

	if text[24] != '1' {
		return nil, newParseError(ErrSplit, 24, "split telegrams are not supported")
	}

	occurredAt, ok := parseDateTime(text[26:38])
	if !ok {
		return nil, newParseError(ErrInvalidOccurrenceTime, 26, "")
	}

	id := string(text[39:55])

	status, err := parseStatus(text[59])
	if err != nil {
		return nil, err
	}

	number, ok := parseNumber(text[60:62])
	if !ok {
		return nil, newParseError(ErrInvalidNumber, 60, "")
	}

	ev := &eew.Event{
		IssuePattern: pattern,
		Source:       source,
		Kind:         kind,
		IssuedAt:     issuedAt,
		OccurredAt:   occurredAt,
		ID:           id,
		Status:       status,
		Number:       number,
	}

	if pattern == eew.IssuePatternCancel {
		return ev, nil
	}

	detail, err := parseDetail(text, occurredAt, dicts)
	if err != nil {
		return nil, err
	}
	ev.Detail = detail
	return ev, nil
}

func parsePattern(b []byte) (eew.IssuePattern, error) {
	switch string(b) {
	case "35":
		return eew.IssuePatternIntensityOnly, nil
	case "36":
		return eew.IssuePatternLowAccuracy, nil
	case "37":
		return eew.IssuePatternHighAccuracy, nil
	case "39":
		return eew.IssuePatternCancel, nil
	default:
		return 0, newParseError(ErrInvalidPattern, 0, string(b))
	}
}

func parseSource(b []byte) (eew.Source, error) {
	switch string(b) {
	case "03":
		return eew.SourceTokyo, nil
	case "04":
		return eew.SourceOsaka, nil
	default:
		return 0, newParseError(ErrInvalidSource, 3, string(b))
	}
}

func parseKind(b []byte) (eew.Kind, error) {
	switch string(b) {
	case "00":
		return eew.KindNormal, nil
	case "01":
		return eew.KindDrill, nil
	case "10":
		return eew.KindCancel, nil
	case "11":
		return eew.KindDrillCancel, nil
	case "20":
		return eew.KindReference, nil
	case "30":
		return eew.KindTrial, nil
	default:
		return 0, newParseError(ErrInvalidKind, 6, string(b))
	}
}

func parseStatus(b byte) (eew.Status, error) {
	switch b {
	case '0':
		return eew.StatusNormal, nil
	case '6':
		return eew.StatusCorrection, nil
	case '7':
		return eew.StatusCancelCorrection, nil
	case '8':
		return eew.StatusLastWithCorrection, nil
	case '9':
		return eew.StatusLast, nil
	case '/':
		return eew.StatusUnknown, nil
	default:
		return 0, newParseError(ErrInvalidStatus, 59, string(b))
	}
}

func parseDateTime(b []byte) (time.Time, bool) {
	t, err := time.ParseInLocation("060102150405", string(b), jst)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseNumber(b []byte) (uint32, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func parseIntensity(b []byte) (eew.IntensityClass, bool) {
	switch string(b) {
	case "01":
		return eew.IntensityOne, true
	case "02":
		return eew.IntensityTwo, true
	case "03":
		return eew.IntensityThree, true
	case "04":
		return eew.IntensityFour, true
	case "5-":
		return eew.IntensityFiveLower, true
	case "5+":
		return eew.IntensityFiveUpper, true
	case "6-":
		return eew.IntensitySixLower, true
	case "6+":
		return eew.IntensitySixUpper, true
	case "07":
		return eew.IntensitySeven, true
	default:
		return 0, false
	}
}

func parseDetail(text []byte, occurredAt time.Time, dicts *Dictionaries) (*eew.Detail, error) {
	var epicenterCode [3]byte
	copy(epicenterCode[:], text[86:89])
	epicenterName, ok := dicts.lookupEpicenter(epicenterCode)
	if !ok {
		return nil, newParseError(ErrUnknownEpicenterCode, 86, string(text[86:89]))
	}

	latValue, ok := parseNumber(text[91:94])
	if !ok {
		return nil, newParseError(ErrInvalidLL, 91, "")
	}
	lat := float32(latValue) / 10.0
	switch text[90] {
	case 'N':
	case 'S':
		lat = -lat
	default:
		return nil, newParseError(ErrInvalidLL, 90, string(text[90]))
	}

	lonValue, ok := parseNumber(text[96:100])
	if !ok {
		return nil, newParseError(ErrInvalidLL, 96, "")
	}
	lon := float32(lonValue) / 10.0
	switch text[95] {
	case 'E':
	case 'W':
		lon = -lon
	default:
		return nil, newParseError(ErrInvalidLL, 95, string(text[95]))
	}

	depth, err := parseOptionalNumberField(text[101:104], "///", 101, ErrInvalidDepth, func(v uint32) float32 { return float32(v) })
	if err != nil {
		return nil, err
	}

	magnitude, err := parseOptionalNumberField(text[105:107], "//", 105, ErrInvalidMagnitude, func(v uint32) float32 { return float32(v) / 10.0 })
	if err != nil {
		return nil, err
	}

	var maximumIntensity *eew.IntensityClass
	if s := string(text[108:110]); s == "//" {
		maximumIntensity = nil
	} else if v, ok := parseIntensity(text[108:110]); ok {
		maximumIntensity = &v
	} else {
		return nil, newParseError(ErrInvalidMaximumIntensity, 108, s)
	}

	epicenterAccuracy, err := parseEpicenterAccuracy(text[113])
	if err != nil {
		return nil, err
	}
	depthAccuracy, err := parseDepthAccuracy(text[114])
	if err != nil {
		return nil, err
	}
	magnitudeAccuracy, err := parseMagnitudeAccuracy(text[115])
	if err != nil {
		return nil, err
	}
	epicenterCategory, err := parseEpicenterCategory(text[121])
	if err != nil {
		return nil, err
	}
	warningStatus, err := parseWarningStatus(text[122], ErrInvalidWarningStatus, 122)
	if err != nil {
		return nil, err
	}
	plum := text[123] == '9'

	intensityChange, err := parseIntensityChange(text[129])
	if err != nil {
		return nil, err
	}
	changeReason, err := parseChangeReason(text[130])
	if err != nil {
		return nil, err
	}

	areaInfo, err := parseEBI(text, occurredAt, dicts)
	if err != nil {
		return nil, err
	}

	return &eew.Detail{
		EpicenterName:     epicenterName,
		Latitude:          lat,
		Longitude:         lon,
		Depth:             depth,
		Magnitude:         magnitude,
		MaximumIntensity:  maximumIntensity,
		EpicenterAccuracy: epicenterAccuracy,
		DepthAccuracy:     depthAccuracy,
		MagnitudeAccuracy: magnitudeAccuracy,
		EpicenterCategory: epicenterCategory,
		WarningStatus:     warningStatus,
		IntensityChange:   intensityChange,
		ChangeReason:      changeReason,
		Plum:              plum,
		AreaInfo:          areaInfo,
	}, nil
}

func parseOptionalNumberField(b []byte, sentinel string, offset int, kind ErrorKind, scale func(uint32) float32) (*float32, error) {
	if v, ok := parseNumber(b); ok {
		f := scale(v)
		return &f, nil
	}
	if string(b) == sentinel {
		return nil, nil
	}
	return nil, newParseError(kind, offset, string(b))
}

func parseEpicenterAccuracy(b byte) (eew.EpicenterAccuracy, error) {
	switch b {
	case '1':
		return eew.EpicenterAccuracySingle, nil
	case '2':
		return eew.EpicenterAccuracyTerritory, nil
	case '3':
		return eew.EpicenterAccuracyGridSearchLow, nil
	case '4':
		return eew.EpicenterAccuracyGridSearchHigh, nil
	case '5':
		return eew.EpicenterAccuracyNIEDLow, nil
	case '6':
		return eew.EpicenterAccuracyNIEDHigh, nil
	case '7':
		return eew.EpicenterAccuracyEPOSLow, nil
	case '8':
		return eew.EpicenterAccuracyEPOSHigh, nil
	case '/':
		return eew.EpicenterAccuracyUnknown, nil
	default:
		return 0, newParseError(ErrInvalidEpicenterAccuracy, 113, string(b))
	}
}

func parseDepthAccuracy(b byte) (eew.DepthAccuracy, error) {
	switch b {
	case '1':
		return eew.DepthAccuracySingle, nil
	case '2':
		return eew.DepthAccuracyTerritory, nil
	case '3':
		return eew.DepthAccuracyGridSearchLow, nil
	case '4':
		return eew.DepthAccuracyGridSearchHigh, nil
	case '5':
		return eew.DepthAccuracyNIEDLow, nil
	case '6':
		return eew.DepthAccuracyNIEDHigh, nil
	case '7':
		return eew.DepthAccuracyEPOSLow, nil
	case '8':
		return eew.DepthAccuracyEPOSHigh, nil
	case '/':
		return eew.DepthAccuracyUnknown, nil
	default:
		return 0, newParseError(ErrInvalidDepthAccuracy, 114, string(b))
	}
}

func parseMagnitudeAccuracy(b byte) (eew.MagnitudeAccuracy, error) {
	switch b {
	case '2':
		return eew.MagnitudeAccuracyNIED, nil
	case '3':
		return eew.MagnitudeAccuracyPWave, nil
	case '4':
		return eew.MagnitudeAccuracyPSMixed, nil
	case '5':
		return eew.MagnitudeAccuracySWave, nil
	case '6':
		return eew.MagnitudeAccuracyEPOS, nil
	case '8':
		return eew.MagnitudeAccuracyLevel, nil
	case '/':
		return eew.MagnitudeAccuracyUnknown, nil
	default:
		return 0, newParseError(ErrInvalidMagnitudeAccuracy, 115, string(b))
	}
}

func parseEpicenterCategory(b byte) (eew.EpicenterCategory, error) {
	switch b {
	case '0':
		return eew.EpicenterCategoryLand, nil
	case '1':
		return eew.EpicenterCategorySea, nil
	case '/':
		return eew.EpicenterCategoryUnknown, nil
	default:
		return 0, newParseError(ErrInvalidEpicenterCategory, 121, string(b))
	}
}

func parseWarningStatus(b byte, kind ErrorKind, offset int) (eew.WarningStatus, error) {
	switch b {
	case '0':
		return eew.WarningStatusForecast, nil
	case '1':
		return eew.WarningStatusAlert, nil
	case '/':
		return eew.WarningStatusUnknown, nil
	default:
		return 0, newParseError(kind, offset, string(b))
	}
}

func parseIntensityChange(b byte) (eew.IntensityChange, error) {
	switch b {
	case '0':
		return eew.IntensityChangeSame, nil
	case '1':
		return eew.IntensityChangeUp, nil
	case '2':
		return eew.IntensityChangeDown, nil
	case '/':
		return eew.IntensityChangeUnknown, nil
	default:
		return 0, newParseError(ErrInvalidIntensityChange, 129, string(b))
	}
}

func parseChangeReason(b byte) (eew.ChangeReason, error) {
	switch b {
	case '0':
		return eew.ChangeReasonNothing, nil
	case '1':
		return eew.ChangeReasonMagnitude, nil
	case '2':
		return eew.ChangeReasonEpicenter, nil
	case '3':
		return eew.ChangeReasonMixed, nil
	case '4':
		return eew.ChangeReasonDepth, nil
	case '9':
		return eew.ChangeReasonPlum, nil
	case '/':
		return eew.ChangeReasonUnknown, nil
	default:
		return 0, newParseError(ErrInvalidChangeReason, 130, string(b))
	}
}

const ebiRecordLen = 20

func parseEBI(text []byte, occurredAt time.Time, dicts *Dictionaries) ([]eew.AreaEntry, error) {
	if len(text) < 138 || string(text[135:138]) != "EBI" {
		return nil, nil
	}

	var areas []eew.AreaEntry
	it := 138
	for it+ebiRecordLen < len(text) {
		if string(text[it+1:it+6]) == "9999=" {
			break
		}

		part := text[it : it+ebiRecordLen]

		var areaCode [3]byte
		copy(areaCode[:], part[1:4])
		areaName, ok := dicts.lookupArea(areaCode)
		if !ok {
			return nil, newParseError(ErrUnknownAreaCode, it+1, string(part[1:4]))
		}

		leftIntensity, ok := parseIntensity(part[6:8])
		if !ok {
			return nil, newParseError(ErrInvalidEBI, it+6, string(part[6:8]))
		}

		var rightIntensity *eew.IntensityClass
		if s := string(part[8:10]); s != "//" {
			v, ok := parseIntensity(part[8:10])
			if !ok {
				return nil, newParseError(ErrInvalidEBI, it+8, s)
			}
			rightIntensity = &v
		}

		var minimumIntensity eew.IntensityClass
		var maximumIntensity *eew.IntensityClass
		if rightIntensity != nil {
			minimumIntensity = *rightIntensity
			maximumIntensity = &leftIntensity
		} else {
			minimumIntensity = leftIntensity
			maximumIntensity = nil
		}

		var reachAt *time.Time
		if raw := part[11:17]; string(raw) != "//////" {
			rt, err := parseArrivalTime(raw, occurredAt)
			if err != nil {
				return nil, newParseError(ErrInvalidEBI, it+11, string(raw))
			}
			reachAt = rt
		}

		localWarningStatus, err := parseWarningStatus(part[18], ErrInvalidEBI, it+18)
		if err != nil {
			return nil, err
		}

		waveStatus, err := parseWaveStatus(part[19], it+19)
		if err != nil {
			return nil, err
		}

		areas = append(areas, eew.AreaEntry{
			AreaName:         areaName,
			MinimumIntensity: minimumIntensity,
			MaximumIntensity: maximumIntensity,
			ReachAt:          reachAt,
			WarningStatus:    localWarningStatus,
			WaveStatus:       waveStatus,
		})

		it += ebiRecordLen
	}

	if it+5 >= len(text) || string(text[it+1:it+6]) != "9999=" {
		return nil, newParseError(ErrPrematureEOS, it, "")
	}

	return areas, nil
}

func parseWaveStatus(b byte, offset int) (eew.WaveStatus, error) {
	switch b {
	case '0':
		return eew.WaveStatusUnreached, nil
	case '1':
		return eew.WaveStatusReached, nil
	case '9':
		return eew.WaveStatusPlum, nil
	case '/':
		return eew.WaveStatusUnknown, nil
	default:
		return 0, newParseError(ErrInvalidEBI, offset, string(b))
	}
}

// parseArrivalTime resolves a bare hhmmss JST time-of-day against the full
// occurredAt instant, choosing the candidate date within +-2h of occurredAt
// and wrapping by +-1 day when the naive same-day candidate falls outside
// that window.
func parseArrivalTime(raw []byte, occurredAt time.Time) (*time.Time, error) {
	if len(raw) != 6 {
		return nil, newParseError(ErrInvalidEBI, 0, string(raw))
	}
	h, err1 := strconv.Atoi(string(raw[0:2]))
	m, err2 := strconv.Atoi(string(raw[2:4]))
	s, err3 := strconv.Atoi(string(raw[4:6]))
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, newParseError(ErrInvalidEBI, 0, string(raw))
	}

	base := occurredAt.In(jst)
	candidate := time.Date(base.Year(), base.Month(), base.Day(), h, m, s, 0, jst)
	diff := candidate.Sub(base)

	switch {
	case diff < -2*time.Hour:
		candidate = candidate.Add(24 * time.Hour)
	case diff > 2*time.Hour:
		candidate = candidate.Add(-24 * time.Hour)
	}

	result := candidate.UTC()
	return &result, nil
}
