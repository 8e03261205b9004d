package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleOutput(t *testing.T) {
	var stderr bytes.Buffer
	logger, closer, err := New(Options{Level: "info"}, &stderr)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info().Str("port", "/dev/ttyUSB0").Int("baud", 9600).Msg("RFID Reader connected.")
	logger.Debug().Msg("hidden")

	out := stderr.String()
	require.Contains(t, out, "RFID Reader connected.")
	require.Contains(t, out, "port=/dev/ttyUSB0")
	require.Contains(t, out, "baud=9600")
	require.NotContains(t, out, "hidden")
	require.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "console output must not be JSON")
}

func TestNew_LevelCaseInsensitive(t *testing.T) {
	var stderr bytes.Buffer
	logger, _, err := New(Options{Level: "DEBUG"}, &stderr)
	require.NoError(t, err)

	logger.Debug().Msg("visible")
	require.Contains(t, stderr.String(), "visible")
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "chatty"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "chatty")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rfid.log")
	var stderr bytes.Buffer
	logger, closer, err := New(Options{Level: "info", File: path, MaxSizeMB: 1}, &stderr)
	require.NoError(t, err)

	logger.Error().Str("error", "device unplugged").Msg("Serial error")
	require.NoError(t, closer.Close())

	require.Contains(t, stderr.String(), "Serial error")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &entry))
	require.Equal(t, "Serial error", entry["message"])
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "device unplugged", entry["error"])
}
