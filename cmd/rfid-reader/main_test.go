package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RFID_PORT", "RFID_BAUD", "RFID_READ_TIMEOUT", "RFID_LOG_LEVEL", "RFID_LOG_FILE"} {
		t.Setenv(k, "")
	}
}

func TestRun_OpenFailure(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--port", "/dev/does-not-exist-rfid"}, &stdout, &stderr)

	require.Equal(t, exitFault, code)
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "connection failed")
	require.Contains(t, stderr.String(), "/dev/does-not-exist-rfid")
	require.NotContains(t, stderr.String(), "RFID Reader connected.")
}

func TestRun_UsageErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--speed", "9600"}, "flag provided but not defined"},
		{"bad baud", []string{"--baud", "-1"}, "serial.baud"},
		{"bad timeout", []string{"--read-timeout", "0s"}, "serial.read_timeout"},
		{"bad level", []string{"--log-level", "chatty"}, "log.level"},
		{"missing config", []string{"--config", filepath.Join(os.TempDir(), "missing-rfid.yaml")}, "config load failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)
			require.Equal(t, exitUsage, code)
			require.Empty(t, stdout.String())
			require.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestRun_Help(t *testing.T) {
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run(context.Background(), []string{"-h"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "-port")
	require.Contains(t, stderr.String(), "-baud")
	require.Empty(t, stdout.String())
}

func TestRun_ConfigFileUsed(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "rfid.yaml")
	require.NoError(t, os.WriteFile(p, []byte("serial:\n  port: /dev/does-not-exist-from-file\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", p}, &stdout, &stderr)
	require.Equal(t, exitFault, code)
	require.Contains(t, stderr.String(), "/dev/does-not-exist-from-file")
}
