package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"  warn ", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, parseLevel(tc.in), tc.in)
	}
}

func TestConfigureSetsDefault(t *testing.T) {
	logger := Configure(Config{Level: "DEBUG", Format: "text"})
	assert.Same(t, logger, slog.Default())
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))
}
