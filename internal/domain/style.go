package domain

// radiusScale converts magnitude to circle marker radius in pixels.
const radiusScale = 3

// Stroke attributes shared by every quake marker.
const (
	markerStrokeColor = "#000"
	markerWeight      = 1
	markerOpacity     = 1
	markerFillOpacity = 0.8
)

// depthThreshold is one row of the depth color table. A depth strictly
// greater than above takes color.
type depthThreshold struct {
	above float64
	color string
}

// depthColors is ordered deepest first and evaluated first-match-wins.
// A depth equal to a threshold falls through to the next (shallower) row.
var depthColors = []depthThreshold{
	{above: 90, color: "#ff3333"},
	{above: 70, color: "#ff6633"},
	{above: 50, color: "#ff9933"},
	{above: 30, color: "#ffcc33"},
	{above: 10, color: "#ffff33"},
}

// shallowColor is used when no threshold matches, including NaN depths.
const shallowColor = "#ccff33"

// DepthBand is one interval of depth values sharing a color. The band covers
// (LowerBound, next band's LowerBound]; the shallowest band also takes every
// depth below its bound and the deepest band is open-ended.
type DepthBand struct {
	LowerBound float64 `json:"lower_bound"`
	Color      string  `json:"color"`
}

// DepthBands returns the six bands, shallow to deep.
func DepthBands() []DepthBand {
	bands := make([]DepthBand, 0, len(DefaultBreakpoints))
	for _, b := range DefaultBreakpoints {
		bands = append(bands, DepthBand{LowerBound: b, Color: ColorFor(b + 1)})
	}
	return bands
}

// RadiusFor returns the marker radius for a magnitude. Zero and negative
// magnitudes pass through unchanged; the renderer decides what to do with them.
func RadiusFor(magnitude float64) float64 {
	return magnitude * radiusScale
}

// ColorFor returns the fill color for a depth in km.
func ColorFor(depth float64) string {
	for _, t := range depthColors {
		if depth > t.above {
			return t.color
		}
	}
	return shallowColor
}

// BandIndex returns the index into DepthBands of the band ColorFor uses for
// depth. Depths at or below the second breakpoint, including NaN, map to 0.
func BandIndex(depth float64) int {
	for i, t := range depthColors {
		if depth > t.above {
			return len(depthColors) - i
		}
	}
	return 0
}

// StyleFor resolves the full marker style for a quake.
func StyleFor(q Quake) Style {
	return Style{
		Radius:      RadiusFor(q.Magnitude),
		FillColor:   ColorFor(q.Depth),
		Color:       markerStrokeColor,
		Weight:      markerWeight,
		Opacity:     markerOpacity,
		FillOpacity: markerFillOpacity,
	}
}

// StyleQuakes maps each quake to a styled marker, preserving feed order.
func StyleQuakes(quakes []Quake) []Marker {
	markers := make([]Marker, 0, len(quakes))
	for _, q := range quakes {
		markers = append(markers, Marker{
			Quake: q,
			Style: StyleFor(q),
			Band:  BandIndex(q.Depth),
			Popup: PopupHTML(q),
		})
	}
	return markers
}
