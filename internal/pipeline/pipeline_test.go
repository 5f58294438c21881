package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/couchcryptid/quake-map/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	mu     sync.Mutex
	feeds  []domain.RawFeed
	errs   []error
	calls  atomic.Int32
	before func()
}

// Extract returns the i-th configured result, repeating the last one.
func (m *mockExtractor) Extract(ctx context.Context) (domain.RawFeed, error) {
	if m.before != nil {
		m.before()
	}
	i := int(m.calls.Add(1) - 1)
	if err := ctx.Err(); err != nil {
		return domain.RawFeed{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		feed domain.RawFeed
		err  error
	)
	if len(m.feeds) > 0 {
		feed = m.feeds[min(i, len(m.feeds)-1)]
	}
	if len(m.errs) > 0 {
		err = m.errs[min(i, len(m.errs)-1)]
	}
	return feed, err
}

type mockLoader struct {
	mu      sync.Mutex
	batches [][]domain.Marker
	err     error
}

func (m *mockLoader) LoadBatch(_ context.Context, markers []domain.Marker, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, markers)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readMockFeed(t *testing.T, source, name string) domain.RawFeed {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", name))
	require.NoError(t, err)
	return domain.RawFeed{
		Source:    source,
		Body:      body,
		FetchedAt: time.Date(2024, time.April, 26, 10, 0, 0, 0, time.UTC),
	}
}

func quakeFeed(t *testing.T) domain.RawFeed {
	return readMockFeed(t, "quakes", "usgs_all_week_sample.geojson")
}

func plateFeed(t *testing.T) domain.RawFeed {
	return readMockFeed(t, "plates", "pb2002_boundaries_sample.json")
}

func newPipeline(quakes, plates pipeline.FeedExtractor, loader pipeline.MarkerLoader, metrics *observability.Metrics) *pipeline.Pipeline {
	return pipeline.New(quakes, plates, pipeline.NewTransformer(discardLogger()), loader, discardLogger(), metrics, time.Hour)
}

// --- tests ---

func TestPipeline_Refresh_BuildsSnapshot(t *testing.T) {
	now := time.Date(2024, time.April, 26, 10, 0, 5, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	quakes := &mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	loader := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(quakes, plates, loader, metrics)

	require.Error(t, p.CheckReadiness(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))

	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Markers, 6)
	assert.Equal(t, 1, snap.SkippedFeatures)
	require.NotNil(t, snap.Plates)
	assert.Len(t, snap.Plates.Features, 2)
	assert.Equal(t, now, snap.GeneratedAt)
	assert.Equal(t, domain.DefaultLegend(), snap.Legend)
	require.NoError(t, p.CheckReadiness(context.Background()))

	batch, err := domain.ParseQuakeFeed(quakeFeed(t).Body)
	require.NoError(t, err)
	if diff := cmp.Diff(domain.StyleQuakes(batch.Quakes), snap.Markers); diff != "" {
		t.Errorf("markers mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, loader.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("success")))
	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.MarkersPublished))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PlateFeatures))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Markers.WithLabelValues("90")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Markers.WithLabelValues("-10")))
}

func TestPipeline_Refresh_EndToEndStyles(t *testing.T) {
	p := newPipeline(
		&mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}},
		&mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}},
		nil, observability.NewMetricsForTesting(),
	)
	require.NoError(t, p.Refresh(context.Background()))

	byID := map[string]domain.Marker{}
	for _, m := range p.Snapshot().Markers {
		byID[m.ID] = m
	}

	tests := []struct {
		id    string
		mag   float64
		color string
	}{
		{"us7000m1a1", 5.0, "#ff3333"}, // 95 km
		{"nc73990001", 2.0, "#ccff33"}, // 0 km
		{"ak0245abcd", 3.1, "#ff6633"},
		{"hv74190001", 0, "#ccff33"}, // null magnitude
		{"pr71440001", 4.2, "#ffff33"},
		{"us7000m1b2", 6.1, "#ff9933"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			m, ok := byID[tt.id]
			require.True(t, ok)
			want := tt.mag * 3
			assert.Equal(t, want, m.Style.Radius)
			assert.Equal(t, tt.color, m.Style.FillColor)
		})
	}
}

func TestPipeline_Refresh_FetchesConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	barrier := func() {
		started.Done()
		done := make(chan struct{})
		go func() { started.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("feeds were not fetched concurrently")
		}
	}

	quakes := &mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}, before: barrier}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}, before: barrier}
	p := newPipeline(quakes, plates, nil, observability.NewMetricsForTesting())

	require.NoError(t, p.Refresh(context.Background()))
}

func TestPipeline_Refresh_PlateFailureKeepsQuakes(t *testing.T) {
	quakes := &mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}}
	plates := &mockExtractor{errs: []error{errors.New("github down")}}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(quakes, plates, nil, metrics)

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, pipeline.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "plates")

	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Len(t, snap.Markers, 6)
	assert.Nil(t, snap.Plates)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("partial")))
}

func TestPipeline_Refresh_QuakeFailureKeepsPreviousMarkers(t *testing.T) {
	good := quakeFeed(t)
	quakes := &mockExtractor{
		feeds: []domain.RawFeed{good, {}},
		errs:  []error{nil, errors.New("usgs timeout")},
	}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	p := newPipeline(quakes, plates, nil, observability.NewMetricsForTesting())

	require.NoError(t, p.Refresh(context.Background()))
	first := p.Snapshot()

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usgs timeout")

	second := p.Snapshot()
	assert.Equal(t, first.Markers, second.Markers)
	assert.Equal(t, first.QuakesFetchedAt, second.QuakesFetchedAt)
}

func TestPipeline_Refresh_MalformedQuakeFeedIsAFailure(t *testing.T) {
	quakes := &mockExtractor{feeds: []domain.RawFeed{{Source: "quakes", Body: []byte("{not json")}}}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	p := newPipeline(quakes, plates, nil, observability.NewMetricsForTesting())

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse quake feed")
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Refresh_BothFail(t *testing.T) {
	quakes := &mockExtractor{errs: []error{errors.New("boom")}}
	plates := &mockExtractor{errs: []error{errors.New("bang")}}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(quakes, plates, nil, metrics)

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrRefreshFailed)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "bang")
	assert.Nil(t, p.Snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("failure")))
}

func TestPipeline_Refresh_CachedFeedIsNotRepublished(t *testing.T) {
	fresh := quakeFeed(t)
	cached := fresh
	cached.Cached = true

	quakes := &mockExtractor{feeds: []domain.RawFeed{fresh, cached}}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	loader := &mockLoader{}
	p := newPipeline(quakes, plates, loader, observability.NewMetricsForTesting())

	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.Refresh(context.Background()))

	assert.Equal(t, 1, loader.count())
}

func TestPipeline_Refresh_LoaderErrorIsNotFatal(t *testing.T) {
	quakes := &mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	loader := &mockLoader{err: errors.New("broker unavailable")}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(quakes, plates, loader, metrics)

	require.NoError(t, p.Refresh(context.Background()))
	assert.NotNil(t, p.Snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.MarkersPublished))
}

func TestPipeline_Run_HappyPath(t *testing.T) {
	quakes := &mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(quakes, plates, nil, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, int32(1), quakes.calls.Load())
	assert.NotNil(t, p.Snapshot())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_RetriesWithBackoff(t *testing.T) {
	quakes := &mockExtractor{
		feeds: []domain.RawFeed{{}, quakeFeed(t)},
		errs:  []error{errors.New("transient"), nil},
	}
	plates := &mockExtractor{
		feeds: []domain.RawFeed{{}, plateFeed(t)},
		errs:  []error{errors.New("transient"), nil},
	}
	p := newPipeline(quakes, plates, nil, observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, int32(2), quakes.calls.Load())
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	quakes := &mockExtractor{feeds: []domain.RawFeed{quakeFeed(t)}}
	plates := &mockExtractor{feeds: []domain.RawFeed{plateFeed(t)}}
	p := newPipeline(quakes, plates, nil, observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Nil(t, p.Snapshot())
}
