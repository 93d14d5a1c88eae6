package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRollingFileLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "access.log")

	logger, err := NewRollingFileLogger(path, "info", 1, 1, 1, false)
	require.NoError(t, err)

	logger.Info("request served")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "request served")
}

func TestNewRollingFileLoggerLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")

	logger, err := NewRollingFileLogger(path, "error", 1, 1, 1, false)
	require.NoError(t, err)

	logger.Info("chatter")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return // nothing below error level was written at all
	}
	require.NoError(t, err)
	assert.NotContains(t, string(data), "chatter")
}
