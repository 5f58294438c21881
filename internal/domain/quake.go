package domain

import (
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// Quake is one earthquake observation decoded from the USGS summary feed.
type Quake struct {
	ID        string    `json:"id"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Depth     float64   `json:"depth"` // km, the Z ordinate of the feed geometry
	Magnitude float64   `json:"magnitude"`
	Place     string    `json:"place"`
	Time      time.Time `json:"time"`
	URL       string    `json:"url,omitempty"`
}

// QuakeBatch is the result of decoding one earthquake feed document.
type QuakeBatch struct {
	Quakes  []Quake
	Skipped int // features without a usable Point geometry
}

// Style holds the visual parameters for a single circle marker.
type Style struct {
	Radius      float64 `json:"radius"`
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Marker is a quake paired with its resolved style and popup content.
type Marker struct {
	Quake
	Style Style  `json:"style"`
	Band  int    `json:"band"` // index into DepthBands, shallow to deep
	Popup string `json:"popup"`
}

// RawFeed is an undecoded feed document as returned by a feed source.
type RawFeed struct {
	Source    string
	URL       string
	Body      []byte
	FetchedAt time.Time
	Cached    bool // body reused after a 304 Not Modified
}

// Snapshot is the renderable state served to map clients.
type Snapshot struct {
	Markers         []Marker                   `json:"markers"`
	Plates          *geojson.FeatureCollection `json:"-"`
	Legend          Legend                     `json:"legend"`
	SkippedFeatures int                        `json:"skipped_features"`
	QuakesFetchedAt time.Time                  `json:"quakes_fetched_at"`
	PlatesFetchedAt time.Time                  `json:"plates_fetched_at"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}
