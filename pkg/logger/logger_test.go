package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		logFile   string
		wantLevel zapcore.Level
	}{
		{name: "debug console", level: "debug", wantLevel: zapcore.DebugLevel},
		{name: "warn console", level: "warn", wantLevel: zapcore.WarnLevel},
		{name: "error console", level: "error", wantLevel: zapcore.ErrorLevel},
		{name: "unknown level falls back to info", level: "verbose", wantLevel: zapcore.InfoLevel},
		{name: "json to file", level: "info", logFile: filepath.Join(t.TempDir(), "svc.log"), wantLevel: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Log = nil
			t.Cleanup(func() { Log = nil })

			require.NoError(t, Init(tt.level, tt.logFile))
			require.NotNil(t, Log)

			assert.True(t, Log.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, Log.Core().Enabled(tt.wantLevel-1))
			}

			_ = Sync()
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNamedWithoutInit(t *testing.T) {
	Log = nil

	l := Named("storage")
	require.NotNil(t, l)
	// nop logger must accept writes without panicking
	l.Info("ignored")

	assert.NoError(t, Sync())
}

func TestInitWithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "app.log")
	t.Cleanup(func() { Log = nil })

	require.NoError(t, Init("info", logFile))
	Log.Info("upload stored")
	_ = Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "upload stored")
	assert.Contains(t, string(data), "timestamp")
}
