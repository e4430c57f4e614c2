// Package debug provides development logging for the cadence CLI.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	enabled bool
	logger  *zap.SugaredLogger
	logFile *os.File
	mu      sync.Mutex
	logPath string
)

// Enable turns on debug logging to the specified file.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from xdg
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	logFile = f
	logPath = path
	logger = newLogger(f)
	enabled = true

	logger.Infow("debug session started", "time", time.Now().Format(time.RFC3339), "log_file", path)
	return nil
}

// newLogger builds a console-encoded logger writing to w at debug level.
func newLogger(w zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(w), zap.DebugLevel)
	return zap.New(core).Sugar()
}

// Disable turns off debug logging and closes the file.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}

	_ = logger.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logger = nil
	enabled = false
}

// IsEnabled returns whether debug logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// LogPath returns the path to the log file.
func LogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a debug message if logging is enabled.
func Log(format string, args ...any) {
	if l := current(); l != nil {
		l.Debugf(format, args...)
	}
}

// Event logs a component event.
func Event(component, eventType, details string) {
	if l := current(); l != nil {
		l.Debugw(eventType, "component", component, "details", details)
	}
}

// Warn logs a warning with structured key/value pairs.
func Warn(component, msg string, keysAndValues ...any) {
	if l := current(); l != nil {
		l.Warnw(msg, append([]any{"component", component}, keysAndValues...)...)
	}
}

// Error logs an error with context.
func Error(component string, err error, context string) {
	if l := current(); l != nil {
		l.Errorw(context, "component", component, "error", err)
	}
}
