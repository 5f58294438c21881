package pipeline

import (
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/quake-map/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformQuakes(t *testing.T) {
	tr := NewTransformer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	raw := domain.RawFeed{Source: "quakes", Body: []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"a","properties":{"mag":2.5,"place":"Somewhere"},"geometry":{"type":"Point","coordinates":[10,20,35]}},
		{"type":"Feature","id":"b","properties":{"mag":1},"geometry":null}
	]}`)}

	markers, skipped, err := tr.TransformQuakes(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, markers, 1)
	assert.Equal(t, "a", markers[0].ID)
	assert.InDelta(t, 7.5, markers[0].Style.Radius, 1e-9)
	assert.Equal(t, "#ffcc33", markers[0].Style.FillColor)
	assert.Equal(t, 2, markers[0].Band)
}

func TestTransformQuakes_NotAFeatureCollection(t *testing.T) {
	tr := NewTransformer(slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, _, err := tr.TransformQuakes(domain.RawFeed{Body: []byte(`{"type":"Feature"}`)})
	require.Error(t, err)
}

func TestTransformPlates(t *testing.T) {
	tr := NewTransformer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	raw := domain.RawFeed{Source: "plates", Body: []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"Name":"PA-NA"},"geometry":{"type":"LineString","coordinates":[[-125,40],[-124,41]]}}
	]}`)}

	fc, err := tr.TransformPlates(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "PA-NA", fc.Features[0].Properties["Name"])
}
