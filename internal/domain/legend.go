package domain

import "strconv"

// DefaultBreakpoints are the lower bounds of the depth bands in km, shallow to deep.
var DefaultBreakpoints = []float64{-10, 10, 30, 50, 70, 90}

// LegendTitle heads the depth legend.
const LegendTitle = "Depth (km)"

// LegendEntry is one swatch and label in the depth legend.
type LegendEntry struct {
	SwatchColor string `json:"swatch_color"`
	LabelText   string `json:"label"`
}

// Legend is the titled, ordered list of depth legend entries.
type Legend struct {
	Title   string        `json:"title"`
	Entries []LegendEntry `json:"entries"`
}

// DefaultLegend builds the legend for DefaultBreakpoints.
func DefaultLegend() Legend {
	return Legend{Title: LegendTitle, Entries: BuildLegend(DefaultBreakpoints)}
}

// BuildLegend returns one entry per breakpoint in input order. The swatch is
// sampled 1 km deeper than the breakpoint so it lands strictly inside the band,
// since ColorFor treats a depth equal to a threshold as the shallower band.
// The last breakpoint is labeled open-ended.
func BuildLegend(breakpoints []float64) []LegendEntry {
	entries := make([]LegendEntry, 0, len(breakpoints))
	for i, b := range breakpoints {
		label := formatNumber(b) + "+ km"
		if i+1 < len(breakpoints) {
			label = formatNumber(b) + "–" + formatNumber(breakpoints[i+1]) + " km"
		}
		entries = append(entries, LegendEntry{
			SwatchColor: ColorFor(b + 1),
			LabelText:   label,
		})
	}
	return entries
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
