package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeedTransformer implements Transformer using the domain parsing and
// styling functions.
type FeedTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a FeedTransformer.
func NewTransformer(logger *slog.Logger) *FeedTransformer {
	return &FeedTransformer{logger: logger}
}

func (t *FeedTransformer) TransformQuakes(raw domain.RawFeed) ([]domain.Marker, int, error) {
	batch, err := domain.ParseQuakeFeed(raw.Body)
	if err != nil {
		return nil, 0, err
	}
	if batch.Skipped > 0 {
		t.logger.Warn("skipped earthquake features without point geometry",
			"feed", raw.Source,
			"skipped", batch.Skipped,
		)
	}
	return domain.StyleQuakes(batch.Quakes), batch.Skipped, nil
}

func (t *FeedTransformer) TransformPlates(raw domain.RawFeed) (*geojson.FeatureCollection, error) {
	return domain.ParsePlateFeed(raw.Body)
}
