package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo(t *testing.T) {
	t.Run("production writes JSON without debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, "production", slog.LevelInfo)

		logger.Debug("hidden")
		logger.Info("attempt finished", slog.String("state", "success"))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "attempt finished", entry["msg"])
		assert.Equal(t, "success", entry["state"])
		assert.NotContains(t, entry, "source")
	})

	t.Run("development writes text with source", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, "development", slog.LevelDebug)

		logger.Debug("sampling")

		out := buf.String()
		assert.Contains(t, out, "msg=sampling")
		assert.Contains(t, out, "source=")
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerTo(&buf, "cli", slog.LevelWarn)

		logger.Info("quiet")
		assert.Empty(t, buf.String())

		logger.Warn("loud")
		assert.Contains(t, buf.String(), "msg=loud")
		assert.NotContains(t, buf.String(), "source=")
	})
}
