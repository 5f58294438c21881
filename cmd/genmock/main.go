// Command genmock reads a saved USGS GeoJSON feed and writes a styled marker
// fixture using the actual domain package, so the fixture matches what the
// service serves for the same feed.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -feed data/mock/usgs_all_week_sample.geojson \
//	  -plates data/mock/pb2002_boundaries_sample.json \
//	  -out data/mock/usgs_all_week_styled.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// fixtureTime is the fixed GeneratedAt stamp of every fixture.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feedPath := flag.String("feed", "", "path to a saved USGS GeoJSON feed")
	platesPath := flag.String("plates", "", "optional path to a PB2002 boundaries file")
	out := flag.String("out", "", "output path for the styled marker fixture")
	flag.Parse()

	if *feedPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -feed, -out")
	}

	// Set a fixed clock for reproducible GeneratedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	body, err := os.ReadFile(*feedPath)
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	var plateBody []byte
	if *platesPath != "" {
		if plateBody, err = os.ReadFile(*platesPath); err != nil {
			return fmt.Errorf("read plates: %w", err)
		}
	}

	fix, err := buildFixture(body, plateBody)
	if err != nil {
		return err
	}
	markers := fix.Markers
	log.Printf("quakes: %d styled, %d skipped", len(markers), fix.SkippedFeatures)
	if fix.Plates != nil {
		log.Printf("plates: %d boundaries", len(fix.Plates.Features))
	}

	if err := writeJSON(*out, fix); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(markers)
	return nil
}

// fixture is a snapshot with its plate boundaries written inline.
type fixture struct {
	*domain.Snapshot
	Plates *geojson.FeatureCollection `json:"plates,omitempty"`
}

// buildFixture parses and styles a quake feed and, when plateBody is not
// empty, the plate boundaries. The domain clock must already be fixed.
func buildFixture(quakeBody, plateBody []byte) (fixture, error) {
	batch, err := domain.ParseQuakeFeed(quakeBody)
	if err != nil {
		return fixture{}, fmt.Errorf("parse feed: %w", err)
	}

	var plates *geojson.FeatureCollection
	if len(plateBody) > 0 {
		if plates, err = domain.ParsePlateFeed(plateBody); err != nil {
			return fixture{}, fmt.Errorf("parse plates: %w", err)
		}
	}

	snap := domain.NewSnapshot(domain.StyleQuakes(batch.Quakes), plates, batch.Skipped, fixtureTime, fixtureTime)
	return fixture{Snapshot: snap, Plates: plates}, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(markers []domain.Marker) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(markers))

	counts := domain.CountByBand(markers)
	legend := domain.DefaultLegend()
	fmt.Println("By depth band:")
	for i, e := range legend.Entries {
		fmt.Printf("  %-10s %s %d\n", e.LabelText, e.SwatchColor, counts[i])
	}

	if len(markers) == 0 {
		return
	}

	sorted := make([]domain.Marker, len(markers))
	copy(sorted, markers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Magnitude > sorted[j].Magnitude })
	top := sorted[0]
	fmt.Printf("\nLargest: %s M%g depth %g km radius %g (%s)\n",
		top.ID, top.Magnitude, top.Depth, top.Style.Radius, top.Place)

	deepest := markers[0]
	for _, m := range markers[1:] {
		if m.Depth > deepest.Depth {
			deepest = m
		}
	}
	fmt.Printf("Deepest: %s depth %g km color %s\n", deepest.ID, deepest.Depth, deepest.Style.FillColor)

	var zeroRadius int
	for _, m := range markers {
		if m.Style.Radius == 0 {
			zeroRadius++
		}
	}
	fmt.Printf("Zero radius (missing magnitude): %d\n", zeroRadius)
}
