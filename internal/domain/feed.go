package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const featureCollectionType = "FeatureCollection"

// featureCollectionEnvelope defers feature decoding so one malformed
// feature does not reject the whole document.
type featureCollectionEnvelope struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

// ParseQuakeFeed decodes a USGS GeoJSON summary feed. Features that cannot be
// decoded or whose geometry is not a Point are skipped and counted. It only
// fails when the document itself is not a FeatureCollection.
func ParseQuakeFeed(body []byte) (QuakeBatch, error) {
	var env featureCollectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return QuakeBatch{}, fmt.Errorf("parse quake feed: %w", err)
	}
	if env.Type != featureCollectionType {
		return QuakeBatch{}, fmt.Errorf("parse quake feed: unexpected type %q", env.Type)
	}

	batch := QuakeBatch{Quakes: make([]Quake, 0, len(env.Features))}
	for _, raw := range env.Features {
		q, ok := decodeQuake(raw)
		if !ok {
			batch.Skipped++
			continue
		}
		batch.Quakes = append(batch.Quakes, q)
	}
	return batch, nil
}

// decodeQuake converts one GeoJSON feature into a Quake. Coordinates are
// [lon, lat, depth]; a missing depth ordinate reads as 0.
func decodeQuake(raw json.RawMessage) (Quake, bool) {
	if !hasGeometry(raw) {
		return Quake{}, false
	}

	var f geojson.Feature
	if err := json.Unmarshal(raw, &f); err != nil {
		return Quake{}, false
	}
	p, ok := f.Geometry.(*geom.Point)
	if !ok || len(p.FlatCoords()) < 2 {
		return Quake{}, false
	}

	return Quake{
		ID:        f.ID,
		Longitude: p.X(),
		Latitude:  p.Y(),
		Depth:     p.Z(),
		Magnitude: floatProperty(f.Properties, "mag"),
		Place:     stringProperty(f.Properties, "place"),
		Time:      epochMillisProperty(f.Properties, "time"),
		URL:       stringProperty(f.Properties, "url"),
	}, true
}

// hasGeometry reports whether a raw feature carries a non-null geometry member.
func hasGeometry(raw json.RawMessage) bool {
	var probe struct {
		Geometry json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	g := bytes.TrimSpace(probe.Geometry)
	return len(g) > 0 && !bytes.Equal(g, []byte("null"))
}

// floatProperty returns a numeric property, or 0 when absent or null.
func floatProperty(props map[string]any, key string) float64 {
	if v, ok := props[key].(float64); ok {
		return v
	}
	return 0
}

func stringProperty(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

// epochMillisProperty reads a Unix millisecond timestamp as UTC time.
func epochMillisProperty(props map[string]any, key string) time.Time {
	v, ok := props[key].(float64)
	if !ok {
		return time.Time{}
	}
	return time.UnixMilli(int64(v)).UTC()
}

// ParsePlateFeed decodes the plate boundary FeatureCollection. Geometries are
// kept as decoded so they can be re-emitted unchanged; features that fail to
// decode are dropped.
func ParsePlateFeed(body []byte) (*geojson.FeatureCollection, error) {
	var env featureCollectionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse plate feed: %w", err)
	}
	if env.Type != featureCollectionType {
		return nil, fmt.Errorf("parse plate feed: unexpected type %q", env.Type)
	}

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(env.Features))}
	for _, raw := range env.Features {
		if !hasGeometry(raw) {
			continue
		}
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		fc.Features = append(fc.Features, &f)
	}
	return fc, nil
}

// PopupHTML renders the popup shown when a marker is clicked. The place name
// comes from the feed and is escaped.
func PopupHTML(q Quake) string {
	return fmt.Sprintf("<h3>%s</h3><hr><p>Magnitude: %s</p><p>Depth: %s</p>",
		html.EscapeString(q.Place), formatNumber(q.Magnitude), formatNumber(q.Depth))
}
