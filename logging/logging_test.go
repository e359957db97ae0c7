package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldAndRelease(t *testing.T) {
	require.NoError(t, Init(true, "INFO", "text", ""))

	slog.Info("buffered message")

	var buf bytes.Buffer
	require.NoError(t, Release(&buf))
	assert.Contains(t, buf.String(), "buffered message", "held output flushes on release")

	slog.Info("live message")
	assert.Contains(t, buf.String(), "live message")

	// holding again detaches the writer
	Hold()
	slog.Info("held again")
	assert.NotContains(t, buf.String(), "held again")

	require.NoError(t, Release(&buf))
	assert.Contains(t, buf.String(), "held again")
}

func TestLogFileTee(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, Init(true, "INFO", "text", logFile))

	slog.Info("to the file")
	require.NoError(t, Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to the file")
	// held output must not be written to the file a second time on close
	assert.Equal(t, 1, strings.Count(string(data), "to the file"))
}

func TestLevelFiltering(t *testing.T) {
	require.NoError(t, Init(false, "WARN", "text", ""))
	var buf bytes.Buffer
	require.NoError(t, Release(&buf))

	slog.Debug("too quiet")
	slog.Info("still too quiet")
	slog.Warn("loud enough")

	assert.NotContains(t, buf.String(), "too quiet")
	assert.Contains(t, buf.String(), "loud enough")
}

func TestJSONFormat(t *testing.T) {
	require.NoError(t, Init(false, "INFO", "json", ""))
	var buf bytes.Buffer
	require.NoError(t, Release(&buf))

	slog.Info("structured", "answer", 42)
	assert.Contains(t, buf.String(), `"msg":"structured"`)
	assert.Contains(t, buf.String(), `"answer":42`)
}
