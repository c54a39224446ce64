// Package destination hosts the outbound workers (structured logger,
// Slack incoming webhook, Twitter status update) and the shared
// short-form text formatter they all render from.
package destination

import (
	"fmt"
	"strings"
	"time"

	"tina/internal/eew"
)

var jst = time.FixedZone("JST", 9*3600)

func formatTime(t time.Time) string {
	return t.In(jst).Format("15:04:05")
}

func formatPosition(lat, lon float32) string {
	latH, lonH := "N", "E"
	if lat < 0 {
		latH = "S"
	}
	if lon < 0 {
		lonH = "W"
	}
	abs := func(f float32) float32 {
		if f < 0 {
			return -f
		}
		return f
	}
	return fmt.Sprintf("%s%.1f/%s%.1f", latH, abs(lat), lonH, abs(lon))
}

func formatMagnitude(m *float32) string {
	if m == nil {
		return "M---"
	}
	return fmt.Sprintf("M%.1f", *m)
}

func formatDepth(d *float32) string {
	if d == nil {
		return "---km"
	}
	return fmt.Sprintf("%.0fkm", *d)
}

func formatIntensity(c *eew.IntensityClass) string {
	if c == nil {
		return "震度不明"
	}
	return c.JapaneseLabel()
}

// compareIntensity orders latest against previous by maximum intensity.
// A missing previous event, or a missing detail on either side, compares
// as equal (no arrow). When both details are present but only one carries
// a maximum intensity, the missing one ranks below the present one.
func compareIntensity(latest, previous *eew.Event) int {
	if latest.Detail == nil || previous == nil || previous.Detail == nil {
		return 0
	}
	l, p := latest.Detail.MaximumIntensity, previous.Detail.MaximumIntensity
	switch {
	case l == nil && p == nil:
		return 0
	case l == nil:
		return -1
	case p == nil:
		return 1
	default:
		return l.Rank() - p.Rank()
	}
}

func phaseTitle(p eew.Phase) (string, bool) {
	switch p {
	case eew.PhaseCancel:
		return "取消", true
	case eew.PhaseFastForecast:
		return "速報", true
	case eew.PhaseForecast:
		return "予報", true
	case eew.PhaseAlert:
		return "警報", true
	default:
		return "", false
	}
}

// FormatShortParts renders the three pieces of the bracketed one-line
// summary separately (header, body, footer), or ok=false when the event
// has no phase (e.g. a non-cancel report without a detail block).
func FormatShortParts(latest, previous *eew.Event) (header, body, footer string, ok bool) {
	var h strings.Builder

	if latest.IsTestOrReference() {
		h.WriteString("テスト配信 | ")
	}
	if latest.IsDrill() {
		h.WriteString("訓練 | ")
	}

	phase, phaseOK := latest.Phase()
	title, titleOK := phaseTitle(phase)
	if !phaseOK || !titleOK {
		return "", "", "", false
	}
	h.WriteString(title)

	switch {
	case compareIntensity(latest, previous) > 0:
		h.WriteString("↑")
	case compareIntensity(latest, previous) < 0:
		h.WriteString("↓")
	}

	if latest.IsLast() {
		h.WriteString("/最終")
	}

	if latest.Detail == nil {
		body = "---"
	} else {
		d := latest.Detail
		body = fmt.Sprintf("%s %s %s %s (%s) %s発生",
			d.EpicenterName, formatIntensity(d.MaximumIntensity), formatMagnitude(d.Magnitude),
			formatDepth(d.Depth), formatPosition(d.Latitude, d.Longitude), formatTime(latest.OccurredAt))
	}

	footer = fmt.Sprintf("第%d報 %s", latest.Number, latest.ID)
	return h.String(), body, footer, true
}

// FormatShort joins FormatShortParts into the bracketed `[header] body |
// footer` one-liner used by the logger and Twitter worker.
func FormatShort(latest, previous *eew.Event) (string, bool) {
	header, body, footer, ok := FormatShortParts(latest, previous)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("[%s] %s | %s", header, body, footer), true
}
