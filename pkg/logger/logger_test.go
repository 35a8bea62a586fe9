package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	cfg := &Config{
		Level:      "DEBUG",
		Filename:   logFile,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
		Compress:   false,
	}

	err := InitLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, Log)

	Log.Info("Test log message")
	Sync()

	_, err = os.Stat(logFile)
	assert.NoError(t, err)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:    "INVALID",
		Filename: filepath.Join(t.TempDir(), "test_invalid.log"),
	}

	err := InitLogger(cfg)
	assert.Error(t, err)
}

func TestLFallsBackToNop(t *testing.T) {
	saved := Log
	Log = nil
	defer func() { Log = saved }()

	assert.NotPanics(t, func() { L().Info("discarded") })
}
