package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger  *zap.SugaredLogger
	rotator *lumberjack.Logger
)

// Options controls where and how much the debug log writes
type Options struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// InitLogger opens the rotating log file. The terminal belongs to the UI, so
// nothing is ever written to stdout or stderr.
func InitLogger(opts Options) error {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator = &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		level,
	)
	logger = zap.New(core).Sugar()
	logger.Info("=== Flow Chat Log Started ===")

	return nil
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	if logger != nil {
		logger.Debugf(format, v...)
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	if logger != nil {
		logger.Infof(format, v...)
	}
}

// Warn logs a warning
func Warn(format string, v ...interface{}) {
	if logger != nil {
		logger.Warnf(format, v...)
	}
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	if logger != nil {
		logger.Errorf(format, v...)
	}
}

// Close flushes and closes the log file
func Close() {
	if logger == nil {
		return
	}
	logger.Info("=== Flow Chat Log Ended ===")
	_ = logger.Sync()
	rotator.Close()
	logger = nil
	rotator = nil
}
