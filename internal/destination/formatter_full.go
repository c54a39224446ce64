package destination

import (
	"fmt"
	"strings"

	"tina/internal/eew"
)

// FormatFull renders the verbose, field-by-field dump the structured
// logger writes: every envelope field, the full detail block when
// present, and one line per EBI area entry.
func FormatFull(e *eew.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[EEW: %s - %d]\n", e.ID, e.Number)
	fmt.Fprintf(&b, "issue_pattern: %s, source: %s, kind: %s, issued_at: %s, occurred_at: %s, status: %s\n",
		e.IssuePattern, e.Source, e.Kind, e.IssuedAt, e.OccurredAt, e.Status)

	if e.Detail != nil {
		d := e.Detail
		fmt.Fprintf(&b, "epicenter_name: %s, epicenter: (%.2f,%.2f), depth: %s, magnitude: %s, "+
			"maximum_intensity: %s, epicenter_accuracy: %d, depth_accuracy: %d, magnitude_accuracy: %d, "+
			"epicenter_category: %d, warning_status: %d, intensity_change: %d, change_reason: %d\n",
			d.EpicenterName, d.Latitude, d.Longitude, formatDepth(d.Depth), formatMagnitude(d.Magnitude),
			formatIntensity(d.MaximumIntensity), d.EpicenterAccuracy, d.DepthAccuracy, d.MagnitudeAccuracy,
			d.EpicenterCategory, d.WarningStatus, d.IntensityChange, d.ChangeReason)

		for _, area := range d.AreaInfo {
			reachAt := "none"
			if area.ReachAt != nil {
				reachAt = area.ReachAt.Format("15:04:05")
			}
			maxIntensity := "none"
			if area.MaximumIntensity != nil {
				maxIntensity = area.MaximumIntensity.String()
			}
			fmt.Fprintf(&b, "area_name: %s, minimum_intensity: %s, maximum_intensity: %s, reach_at: %s, "+
				"warning_status: %d, wave_status: %d\n",
				area.AreaName, area.MinimumIntensity, maxIntensity, reachAt, area.WarningStatus, area.WaveStatus)
		}
	}

	return b.String()
}
