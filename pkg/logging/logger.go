// Package logging provides structured logging for the context and
// session core. Each process run writes to a run-specific JSON log file
// under ~/.attest/logs/, identified by a generated run id; components
// (contexts, pools, drivers) obtain their own named logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// runID identifies the current process execution.
	runID     string
	runIDOnce sync.Once

	// logDir is the directory where log files are stored.
	logDir string

	initOnce sync.Once
	initErr  error
)

// getRunID returns or creates the run id for this execution.
func getRunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// initLogDirectory ensures the log directory exists.
func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".attest", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// Logger is a component-scoped structured logger.
type Logger struct {
	sugar   *zap.SugaredLogger
	runID   string
	logPath string
	close   func() error
}

// NewLogger creates a logger for a specific component, writing JSON
// entries to ~/.attest/logs/<run-id>.log.
//
// If the log directory cannot be created or the log file cannot be
// opened, a fallback logger writing to stderr is returned along with the
// error, so callers keep logging either way.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component), err
	}

	logPath := filepath.Join(logDir, getRunID()+".log")

	// Append mode: multiple components share the run's log file.
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return newFallbackLogger(component), fmt.Errorf("failed to open log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.DebugLevel)

	z := zap.New(core).With(
		zap.String("component", component),
		zap.String("run_id", getRunID()),
	)

	return &Logger{
		sugar:   z.Sugar(),
		runID:   getRunID(),
		logPath: logPath,
		close: func() error {
			if err := z.Sync(); err != nil {
				return err
			}
			return file.Close()
		},
	}, nil
}

// newFallbackLogger creates a stderr logger for when file logging fails.
func newFallbackLogger(component string) *Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stderr), zapcore.DebugLevel)
	z := zap.New(core).With(zap.String("component", component))
	return &Logger{
		sugar: z.Sugar(),
		runID: getRunID(),
		close: func() error { return nil },
	}
}

// Nop returns a logger that discards everything. Used by tests and as
// the default before a context installs a real logger.
func Nop() *Logger {
	return &Logger{
		sugar: zap.NewNop().Sugar(),
		close: func() error { return nil },
	}
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...any) { l.sugar.Debugf(format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...any) { l.sugar.Infof(format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...any) { l.sugar.Warnf(format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...any) { l.sugar.Errorf(format, v...) }

// With returns a logger with additional structured key/value context.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{
		sugar:   l.sugar.With(kv...),
		runID:   l.runID,
		logPath: l.logPath,
		close:   func() error { return nil },
	}
}

// RunID returns the run id shared by all loggers of this execution.
func (l *Logger) RunID() string { return l.runID }

// LogPath returns the path of the log file, empty in fallback mode.
func (l *Logger) LogPath() string { return l.logPath }

// Close flushes and closes the underlying log file. Safe to call on
// fallback and derived loggers.
func (l *Logger) Close() error { return l.close() }

// GetRunID returns the current global run id.
func GetRunID() string { return getRunID() }

// GetLogDirectory returns the directory where logs are stored.
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
