package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const errNoSnapshot = "map data has not been loaded yet"

type quakesResponse struct {
	GeneratedAt time.Time       `json:"generated_at"`
	FetchedAt   time.Time       `json:"fetched_at"`
	Count       int             `json:"count"`
	Skipped     int             `json:"skipped_features"`
	Markers     []domain.Marker `json:"markers"`
}

type styleResponse struct {
	Magnitude float64 `json:"magnitude"`
	Depth     float64 `json:"depth"`
	Band      int     `json:"band"`
	domain.Style
}

// handleQuakes serves the styled markers, optionally filtered by
// bbox=minLon,minLat,maxLon,maxLat and minmag.
func (s *Server) handleQuakes(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Snapshot()
	if snap == nil || snap.QuakesFetchedAt.IsZero() {
		writeError(w, http.StatusServiceUnavailable, errNoSnapshot)
		return
	}

	markers := snap.Markers
	if raw := r.URL.Query().Get("bbox"); raw != "" {
		box, err := parseBBox(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		markers = snap.MarkersInBounds(box[0], box[1], box[2], box[3])
	}
	if raw := r.URL.Query().Get("minmag"); raw != "" {
		minMag, err := parseFinite("minmag", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		markers = filterMagnitude(markers, minMag)
	}

	sharedobs.WriteJSON(w, http.StatusOK, quakesResponse{
		GeneratedAt: snap.GeneratedAt,
		FetchedAt:   snap.QuakesFetchedAt,
		Count:       len(markers),
		Skipped:     snap.SkippedFeatures,
		Markers:     markers,
	})
}

// handlePlates serves the plate boundaries as a GeoJSON FeatureCollection
// carrying the boundary line style as a foreign member.
func (s *Server) handlePlates(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshots.Snapshot()
	if snap == nil || snap.Plates == nil {
		writeError(w, http.StatusServiceUnavailable, errNoSnapshot)
		return
	}

	data, err := encodePlates(snap.Plates)
	if err != nil {
		s.logger.Error("encode plate boundaries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode plate boundaries")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func encodePlates(fc *geojson.FeatureCollection) ([]byte, error) {
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	style, err := json.Marshal(domain.PlateStyle)
	if err != nil {
		return nil, err
	}
	members["style"] = style
	return json.Marshal(members)
}

func handleLegend(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.DefaultLegend())
}

func handleMapConfig(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.DefaultMapConfig())
}

// handleStyle resolves the marker style for a single magnitude and depth.
func handleStyle(w http.ResponseWriter, r *http.Request) {
	mag, err := parseFinite("mag", r.URL.Query().Get("mag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth, err := parseFinite("depth", r.URL.Query().Get("depth"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := domain.Quake{Magnitude: mag, Depth: depth}
	sharedobs.WriteJSON(w, http.StatusOK, styleResponse{
		Magnitude: mag,
		Depth:     depth,
		Band:      domain.BandIndex(depth),
		Style:     domain.StyleFor(q),
	})
}

// parseBBox parses "minLon,minLat,maxLon,maxLat". minLon may exceed maxLon
// for boxes that cross the antimeridian.
func parseBBox(raw string) ([4]float64, error) {
	var box [4]float64
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return box, errors.New("bbox must be minLon,minLat,maxLon,maxLat")
	}
	for i, p := range parts {
		v, err := parseFinite("bbox", strings.TrimSpace(p))
		if err != nil {
			return box, err
		}
		box[i] = v
	}
	for _, lon := range []float64{box[0], box[2]} {
		if lon < -180 || lon > 180 {
			return box, fmt.Errorf("bbox longitude %v out of range", lon)
		}
	}
	for _, lat := range []float64{box[1], box[3]} {
		if lat < -90 || lat > 90 {
			return box, fmt.Errorf("bbox latitude %v out of range", lat)
		}
	}
	if box[1] > box[3] {
		return box, errors.New("bbox minLat must not exceed maxLat")
	}
	return box, nil
}

func parseFinite(name, raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func filterMagnitude(markers []domain.Marker, minMag float64) []domain.Marker {
	out := make([]domain.Marker, 0, len(markers))
	for _, m := range markers {
		if m.Magnitude >= minMag {
			out = append(out, m)
		}
	}
	return out
}
