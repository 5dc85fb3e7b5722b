package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelRouting(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log, closeLog, err := New(Options{Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("items issued")
	log.Warn("low stock")
	log.Error("database locked")
	closeLog()

	require.NotContains(t, stdout.String(), "hidden")
	require.Contains(t, stdout.String(), "items issued")
	require.Contains(t, stdout.String(), "low stock")
	require.NotContains(t, stdout.String(), "database locked")
	require.Contains(t, stderr.String(), "database locked")
	require.NotContains(t, stderr.String(), "items issued")
}

func TestLogFileGetsEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handreceipt.log")
	var stdout, stderr bytes.Buffer
	log, closeLog, err := New(Options{Level: "debug", File: path, Stdout: &stdout, Stderr: &stderr})
	require.NoError(t, err)

	Named(log, "custody").Debug("checked")
	log.Error("failed")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"logger":"custody"`)
	require.Contains(t, string(data), `"msg":"checked"`)
	require.Contains(t, string(data), `"msg":"failed"`)
	require.Contains(t, string(data), `"timestamp"`)
}

func TestInvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNamedNil(t *testing.T) {
	require.NotNil(t, Named(nil, "x"))
}
