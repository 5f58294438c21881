// Command validate checks a styled marker fixture produced by genmock against
// the USGS feed it was generated from. It verifies the legend against the
// marker colors, the depth band partition, per-marker radius and color
// parity, popup content, and the inlined plate boundaries.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -feed data/mock/usgs_all_week_sample.geojson \
//	  -plates data/mock/pb2002_boundaries_sample.json \
//	  -fixture data/mock/usgs_all_week_styled.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/jonboulle/clockwork"
)

const radiusTolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to the source USGS GeoJSON feed")
	platesPath := flag.String("plates", "", "optional path to the source PB2002 boundaries file")
	fixturePath := flag.String("fixture", "", "path to the styled marker fixture")
	flag.Parse()

	if *feedPath == "" || *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*feedPath, *platesPath, *fixturePath); code != 0 {
		os.Exit(code)
	}
}

func run(feedPath, platesPath, fixturePath string) int {
	// Set a fixed clock matching genmock.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Quake Map Fixture Validation ===")
	fmt.Println()

	body, err := os.ReadFile(feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read feed: %v\n", err)
		return 1
	}
	batch, err := domain.ParseQuakeFeed(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse feed: %v\n", err)
		return 1
	}

	var plateBody []byte
	if platesPath != "" {
		if plateBody, err = os.ReadFile(platesPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read plates: %v\n", err)
			return 1
		}
	}

	fix, err := loadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateLegend(fix.Legend),
		validateBandPartition(),
		validateMarkerParity(fix, batch),
		validatePopups(fix.Markers),
		validatePlates(fix.Plates, plateBody),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d feed quakes (%d skipped), %d fixture markers\n",
		len(batch.Quakes), batch.Skipped, len(fix.Markers))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// fixture mirrors the genmock output: a snapshot with the plate boundaries
// inlined under "plates".
type fixture struct {
	domain.Snapshot
	Plates json.RawMessage `json:"plates,omitempty"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fix fixture
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, err
	}
	return &fix, nil
}

// ── Phase 1: Legend ──
// Every legend swatch must be the color a marker inside that band receives.

func validateLegend(fixtureLegend domain.Legend) *phase {
	p := &phase{name: "Phase 1: Legend Consistency"}

	legend := domain.DefaultLegend()
	bands := domain.DepthBands()
	if len(legend.Entries) != len(bands) {
		p.errorf("legend has %d entries, expected %d bands", len(legend.Entries), len(bands))
		return p
	}
	for i, e := range legend.Entries {
		b := domain.DefaultBreakpoints[i]
		if want := domain.ColorFor(b + 1); e.SwatchColor != want {
			p.errorf("entry %d (%s): swatch %s, ColorFor(%g) = %s", i, e.LabelText, e.SwatchColor, b+1, want)
		}
		if e.SwatchColor != bands[i].Color {
			p.errorf("entry %d (%s): swatch %s, band color %s", i, e.LabelText, e.SwatchColor, bands[i].Color)
		}
		if !strings.HasSuffix(e.LabelText, " km") {
			p.errorf("entry %d: label %q lacks unit", i, e.LabelText)
		}
	}
	if last := legend.Entries[len(legend.Entries)-1].LabelText; !strings.HasSuffix(last, "+ km") {
		p.errorf("last entry %q is not open-ended", last)
	}

	if fixtureLegend.Title != legend.Title {
		p.errorf("fixture legend title %q, expected %q", fixtureLegend.Title, legend.Title)
	}
	if len(fixtureLegend.Entries) != len(legend.Entries) {
		p.errorf("fixture legend has %d entries, expected %d", len(fixtureLegend.Entries), len(legend.Entries))
		return p
	}
	for i := range legend.Entries {
		if fixtureLegend.Entries[i] != legend.Entries[i] {
			p.errorf("fixture legend entry %d: %+v, expected %+v", i, fixtureLegend.Entries[i], legend.Entries[i])
		}
	}
	return p
}

// ── Phase 2: Band partition ──
// Sampled depths must fall into exactly one band, with the band's color.

func validateBandPartition() *phase {
	p := &phase{name: "Phase 2: Depth Band Partition"}

	bands := domain.DepthBands()
	for depth := -20.0; depth <= 800; depth += 0.25 {
		matched := -1
		for i, b := range bands {
			lower := b.LowerBound
			if i == 0 {
				lower = math.Inf(-1)
			}
			upper := math.Inf(1)
			if i+1 < len(bands) {
				upper = bands[i+1].LowerBound
			}
			if depth > lower && depth <= upper {
				if matched >= 0 {
					p.errorf("depth %g matches bands %d and %d", depth, matched, i)
				}
				matched = i
			}
		}
		if matched < 0 {
			p.errorf("depth %g matches no band", depth)
			continue
		}
		if got := domain.ColorFor(depth); got != bands[matched].Color {
			p.errorf("depth %g: ColorFor = %s, band %d color %s", depth, got, matched, bands[matched].Color)
		}
		if got := domain.BandIndex(depth); got != matched {
			p.errorf("depth %g: BandIndex = %d, expected %d", depth, got, matched)
		}
	}
	return p
}

// ── Phase 3: Marker parity ──
// Fixture markers must match the feed one-to-one, in order, with styles
// recomputed from magnitude and depth.

func validateMarkerParity(fix *fixture, batch domain.QuakeBatch) *phase {
	p := &phase{name: "Phase 3: Marker Parity (fixture vs feed)"}

	if fix.SkippedFeatures != batch.Skipped {
		p.errorf("skipped features: fixture %d, feed %d", fix.SkippedFeatures, batch.Skipped)
	}
	if len(fix.Markers) != len(batch.Quakes) {
		p.errorf("marker count: fixture %d, feed %d", len(fix.Markers), len(batch.Quakes))
		return p
	}

	for i, m := range fix.Markers {
		q := batch.Quakes[i]
		if m.ID != q.ID {
			p.errorf("marker %d: id %q, feed %q", i, m.ID, q.ID)
			continue
		}
		if m.Magnitude != q.Magnitude || m.Depth != q.Depth {
			p.errorf("%s: mag/depth %g/%g, feed %g/%g", m.ID, m.Magnitude, m.Depth, q.Magnitude, q.Depth)
		}
		if want := q.Magnitude * 3; math.Abs(m.Style.Radius-want) > radiusTolerance {
			p.errorf("%s: radius %g, expected %g", m.ID, m.Style.Radius, want)
		}
		if want := domain.ColorFor(q.Depth); m.Style.FillColor != want {
			p.errorf("%s: fill %s, expected %s for depth %g", m.ID, m.Style.FillColor, want, q.Depth)
		}
		if want := domain.BandIndex(q.Depth); m.Band != want {
			p.errorf("%s: band %d, expected %d", m.ID, m.Band, want)
		}
		if m.Style.FillOpacity != 0.8 || m.Style.Weight != 1 {
			p.errorf("%s: stroke style %+v", m.ID, m.Style)
		}
	}
	return p
}

// ── Phase 4: Popups ──

func validatePopups(markers []domain.Marker) *phase {
	p := &phase{name: "Phase 4: Popup Content"}

	for _, m := range markers {
		if !strings.HasPrefix(m.Popup, "<h3>"+html.EscapeString(m.Place)+"</h3><hr>") {
			p.errorf("%s: popup header %q does not carry the escaped place", m.ID, m.Popup)
		}
		for _, field := range []string{"Magnitude: ", "Depth: "} {
			if !strings.Contains(m.Popup, "<p>"+field) {
				p.errorf("%s: popup missing %q", m.ID, field)
			}
		}
	}
	return p
}

// ── Phase 5: Plates ──
// Inlined boundaries must decode and match the source file feature for feature.

func validatePlates(fixturePlates json.RawMessage, sourceBody []byte) *phase {
	p := &phase{name: "Phase 5: Plate Boundaries"}

	if len(sourceBody) == 0 {
		if len(fixturePlates) > 0 {
			if _, err := domain.ParsePlateFeed(fixturePlates); err != nil {
				p.errorf("fixture plates: %v", err)
			}
		}
		return p
	}
	if len(fixturePlates) == 0 {
		p.errorf("fixture has no plates, source file given")
		return p
	}

	want, err := domain.ParsePlateFeed(sourceBody)
	if err != nil {
		p.errorf("source plates: %v", err)
		return p
	}
	got, err := domain.ParsePlateFeed(fixturePlates)
	if err != nil {
		p.errorf("fixture plates: %v", err)
		return p
	}
	if len(got.Features) != len(want.Features) {
		p.errorf("plate count: fixture %d, source %d", len(got.Features), len(want.Features))
		return p
	}

	for i := range want.Features {
		w, g := want.Features[i], got.Features[i]
		name := fmt.Sprint(w.Properties["Name"])
		if gotName := fmt.Sprint(g.Properties["Name"]); gotName != name {
			p.errorf("plate %d: name %q, source %q", i, gotName, name)
		}
		if fmt.Sprintf("%T", g.Geometry) != fmt.Sprintf("%T", w.Geometry) {
			p.errorf("%s: geometry %T, source %T", name, g.Geometry, w.Geometry)
			continue
		}
		if !slices.Equal(g.Geometry.FlatCoords(), w.Geometry.FlatCoords()) {
			p.errorf("%s: coordinates differ from source", name)
		}
	}
	return p
}
