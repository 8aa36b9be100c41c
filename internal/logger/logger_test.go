package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epc-qr-code-generator/internal/config"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestNew_JSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epcqr.log")

	log, err := New(config.LogConfig{Level: "info", Format: "json", Output: path}, false)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Sugar().Infof("wrote %s", "code.png")
	require.NoError(t, log.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "wrote code.png", entry["msg"])
	assert.NotEmpty(t, entry["time"])
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epcqr.log")

	log, err := New(config.LogConfig{Level: "error", Format: "console", Output: path}, true)
	require.NoError(t, err)

	log.Debug("payload ready")
	require.NoError(t, log.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "DEBUG")
	assert.Contains(t, lines[0], "payload ready")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"}, false)
	assert.Error(t, err)

	_, err = New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")}, false)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "", "INFO"} {
		_, err := parseLevel(level)
		assert.NoError(t, err, level)
	}
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Infof("discarded %d", 1) })
}
