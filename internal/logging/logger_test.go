package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func TestNewWritesJSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Console: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("extraction finished", zap.String("provider", "OpenAI"), zap.Int("rows", 3))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "extraction finished", entry["message"])
	require.Equal(t, "OpenAI", entry["provider"])
	require.EqualValues(t, 3, entry["rows"])
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricing.log")
	var console bytes.Buffer
	logger, err := New(Options{Level: "debug", FilePath: path, Console: &console})
	require.NoError(t, err)

	logger.Debug("page crawled", zap.String("url", "https://example.com"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"page crawled"`)
	require.Contains(t, console.String(), "page crawled")
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)

	_, err = New(Options{Format: "xml"})
	require.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.LogConfig{Level: "warn", Format: "json", File: "/tmp/x.log", MaxSizeMB: 5})
	require.Equal(t, Options{Level: "warn", Format: "json", FilePath: "/tmp/x.log", MaxSizeMB: 5}, opts)
}
