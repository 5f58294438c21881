package domain

import (
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// NewSnapshot assembles a renderable snapshot stamped with the current clock time.
func NewSnapshot(markers []Marker, plates *geojson.FeatureCollection, skipped int, quakesAt, platesAt time.Time) *Snapshot {
	return &Snapshot{
		Markers:         markers,
		Plates:          plates,
		Legend:          DefaultLegend(),
		SkippedFeatures: skipped,
		QuakesFetchedAt: quakesAt,
		PlatesFetchedAt: platesAt,
		GeneratedAt:     clock.Now(),
	}
}

// MarkersInBounds returns the markers whose position lies inside the box,
// edges included. minLon > maxLon selects a box crossing the antimeridian.
func (s *Snapshot) MarkersInBounds(minLon, minLat, maxLon, maxLat float64) []Marker {
	out := make([]Marker, 0, len(s.Markers))
	for _, m := range s.Markers {
		if m.Latitude < minLat || m.Latitude > maxLat {
			continue
		}
		if minLon <= maxLon {
			if m.Longitude < minLon || m.Longitude > maxLon {
				continue
			}
		} else if m.Longitude < minLon && m.Longitude > maxLon {
			continue
		}
		out = append(out, m)
	}
	return out
}

// CountByBand tallies markers per depth band, indexed like DepthBands.
func CountByBand(markers []Marker) []int {
	counts := make([]int, len(DefaultBreakpoints))
	for _, m := range markers {
		if m.Band >= 0 && m.Band < len(counts) {
			counts[m.Band]++
		}
	}
	return counts
}
