package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierjflanagan/Guardian-sub003/internal/config"
	"github.com/xavierjflanagan/Guardian-sub003/internal/logger"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	l.Debug().Msg("hidden")
	l.Warn().Str("kind", "inverted_range").Msg("repaired")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "encounter-manifest", entry["service"])
	assert.Equal(t, "inverted_range", entry["kind"])
	assert.Equal(t, "repaired", entry["message"])
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(config.LogConfig{Level: "debug", Format: "console"}, &buf)

	l.Debug().Msg("visible")

	assert.Contains(t, buf.String(), "visible")
}
