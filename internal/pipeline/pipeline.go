package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/couchcryptid/quake-map/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/sync/errgroup"
)

// ErrRefreshFailed marks a refresh in which neither feed could be updated.
var ErrRefreshFailed = errors.New("refresh failed")

const initialBackoff = 200 * time.Millisecond

// FeedExtractor downloads one raw feed document.
type FeedExtractor interface {
	Extract(ctx context.Context) (domain.RawFeed, error)
}

// Transformer parses raw feed documents into renderable values.
type Transformer interface {
	TransformQuakes(raw domain.RawFeed) ([]domain.Marker, int, error)
	TransformPlates(raw domain.RawFeed) (*geojson.FeatureCollection, error)
}

// MarkerLoader publishes the styled markers of a refresh.
type MarkerLoader interface {
	LoadBatch(ctx context.Context, markers []domain.Marker, generatedAt time.Time) error
}

// Pipeline keeps the map snapshot current by periodically fetching both feeds.
type Pipeline struct {
	quakes      FeedExtractor
	plates      FeedExtractor
	transformer Transformer
	loader      MarkerLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	interval    time.Duration

	refreshMu sync.Mutex
	snapshot  atomic.Pointer[domain.Snapshot]
}

// New creates a Pipeline. loader may be nil to disable marker publishing.
func New(quakes, plates FeedExtractor, t Transformer, loader MarkerLoader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		quakes:      quakes,
		plates:      plates,
		transformer: t,
		loader:      loader,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
	}
}

// Snapshot returns the latest snapshot, or nil before the first successful refresh.
func (p *Pipeline) Snapshot() *domain.Snapshot {
	return p.snapshot.Load()
}

// CheckReadiness returns nil once earthquake markers have been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	s := p.snapshot.Load()
	if s == nil || s.QuakesFetchedAt.IsZero() {
		return errors.New("earthquake feed has not been loaded yet")
	}
	return nil
}

// Run refreshes immediately and then on every interval until the context is
// cancelled. A refresh where both feeds failed is retried with exponential
// backoff capped at the interval.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		err := p.Refresh(ctx)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		wait := p.interval
		switch {
		case errors.Is(err, ErrRefreshFailed):
			p.logger.Error("refresh failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, p.interval)
		case err != nil:
			p.logger.Warn("refresh partially failed", "error", err)
			backoff = initialBackoff
		default:
			backoff = initialBackoff
		}

		if !retry.SleepWithContext(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// Refresh fetches both feeds concurrently and swaps in a new snapshot. The
// fetches are independent: a layer whose feed failed keeps its previous
// content. The returned error wraps ErrRefreshFailed only when neither layer
// could be updated.
func (p *Pipeline) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	start := time.Now()

	// Each fetch records its own error so one failing feed never cancels the other.
	var (
		quakeRaw, plateRaw domain.RawFeed
		quakeErr, plateErr error
		g                  errgroup.Group
	)
	g.Go(func() error {
		quakeRaw, quakeErr = p.quakes.Extract(ctx)
		return nil
	})
	g.Go(func() error {
		plateRaw, plateErr = p.plates.Extract(ctx)
		return nil
	})
	_ = g.Wait()

	prev := p.snapshot.Load()
	var (
		markers  []domain.Marker
		skipped  int
		quakesAt time.Time
		plates   *geojson.FeatureCollection
		platesAt time.Time
	)
	if prev != nil {
		markers, skipped, quakesAt = prev.Markers, prev.SkippedFeatures, prev.QuakesFetchedAt
		plates, platesAt = prev.Plates, prev.PlatesFetchedAt
	}

	quakesUpdated := false
	if quakeErr == nil {
		m, s, err := p.transformer.TransformQuakes(quakeRaw)
		if err != nil {
			quakeErr = err
		} else {
			markers, skipped, quakesAt = m, s, quakeRaw.FetchedAt
			quakesUpdated = true
		}
	}
	if plateErr == nil {
		fc, err := p.transformer.TransformPlates(plateRaw)
		if err != nil {
			plateErr = err
		} else {
			plates, platesAt = fc, plateRaw.FetchedAt
		}
	}

	if quakeErr != nil && plateErr != nil {
		p.metrics.Refreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("%w: %w", ErrRefreshFailed, errors.Join(
			fmt.Errorf("quakes: %w", quakeErr),
			fmt.Errorf("plates: %w", plateErr),
		))
	}

	snap := domain.NewSnapshot(markers, plates, skipped, quakesAt, platesAt)
	p.snapshot.Store(snap)
	p.recordSnapshot(snap)
	p.metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	if quakesUpdated && !quakeRaw.Cached {
		p.publish(ctx, snap)
	}

	p.logger.Info("snapshot refreshed",
		"markers", len(snap.Markers),
		"skipped", snap.SkippedFeatures,
		"quakes_cached", quakeRaw.Cached,
		"plates_cached", plateRaw.Cached,
	)

	switch {
	case quakeErr != nil:
		p.metrics.Refreshes.WithLabelValues("partial").Inc()
		return fmt.Errorf("quakes: %w", quakeErr)
	case plateErr != nil:
		p.metrics.Refreshes.WithLabelValues("partial").Inc()
		return fmt.Errorf("plates: %w", plateErr)
	}
	p.metrics.Refreshes.WithLabelValues("success").Inc()
	return nil
}

// publish hands the markers to the loader. Failures are logged and counted;
// the snapshot is already live.
func (p *Pipeline) publish(ctx context.Context, snap *domain.Snapshot) {
	if p.loader == nil || len(snap.Markers) == 0 {
		return
	}
	if err := p.loader.LoadBatch(ctx, snap.Markers, snap.GeneratedAt); err != nil {
		p.logger.Error("publish markers failed", "error", err, "markers", len(snap.Markers))
		p.metrics.PublishErrors.Inc()
		return
	}
	p.metrics.MarkersPublished.Add(float64(len(snap.Markers)))
}

func (p *Pipeline) recordSnapshot(snap *domain.Snapshot) {
	counts := domain.CountByBand(snap.Markers)
	for i, b := range domain.DefaultBreakpoints {
		p.metrics.Markers.WithLabelValues(strconv.FormatFloat(b, 'f', -1, 64)).Set(float64(counts[i]))
	}
	p.metrics.SkippedFeatures.Set(float64(snap.SkippedFeatures))
	if snap.Plates != nil {
		p.metrics.PlateFeatures.Set(float64(len(snap.Plates.Features)))
	}
}
