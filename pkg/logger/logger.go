// Package logger holds the process-wide zap logger used by the thumbnail service.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It stays nil until Init succeeds; use
// Named or L when code may run before initialization (tests, tools).
var Log *zap.Logger

// Init builds the global logger. With a log file the production JSON encoder
// writes to both the file and stdout, otherwise the console development
// encoder is used.
func Init(level string, logFile string) error {
	var config zap.Config

	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	built, err := config.Build()
	if err != nil {
		return err
	}

	Log = built
	return nil
}

// ParseLevel maps a config string onto a zap level. Unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the global logger or a no-op logger if Init has not run.
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// Named returns a child of the global logger tagged with a component name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}
