package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora-inc/vendora/internal/shared/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInit_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendora.log")

	err := Init(&config.LoggerConfig{Level: "info", Format: "json", OutputPath: path}, false)
	require.NoError(t, err)

	log := NewLogger().Named("resolver")
	log.Debugw("hidden", "user_id", "u-1")
	log.Infow("subscription fetched", "user_id", "u-1")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"subscription fetched"`)
	assert.Contains(t, out, `"logger":"resolver"`)
	assert.False(t, strings.Contains(out, "hidden"))
}
