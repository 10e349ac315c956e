package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("chatty")
	assert.Error(t, err)
}

func TestInitWritesRunFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger("info")
	require.NoError(t, err)

	require.NoError(t, l.Init(dir))
	l.Logf("rendered %d slides", 3)
	l.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "textdeck_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "rendered 3 slides")
	assert.Contains(t, string(data), "App Started")
}

func TestInitCountsRuns(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l, err := NewLogger("")
		require.NoError(t, err)
		require.NoError(t, l.Init(dir))
		l.Close()
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
