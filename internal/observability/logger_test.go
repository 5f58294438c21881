package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/quake-map/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "info", LogFormat: "json"})

	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())
	assert.IsType(t, &slog.JSONHandler{}, logger.Handler())
}

func TestNewLogger_Levels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	ctx := context.Background()

	tests := []struct {
		level      string
		debugOn    bool
		infoOn     bool
		warnOn     bool
		errorLevel bool
	}{
		{"debug", true, true, true, true},
		{"info", false, true, true, true},
		{"warn", false, false, true, true},
		{"error", false, false, false, true},
		{"verbose", false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "text"})

			assert.IsType(t, &slog.TextHandler{}, logger.Handler())
			assert.Equal(t, tt.debugOn, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.infoOn, logger.Enabled(ctx, slog.LevelInfo))
			assert.Equal(t, tt.warnOn, logger.Enabled(ctx, slog.LevelWarn))
			assert.Equal(t, tt.errorLevel, logger.Enabled(ctx, slog.LevelError))
		})
	}
}
