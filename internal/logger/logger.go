// Package logger holds the process-wide zap logger.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Rotation limits of the JSON log file
const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 30
)

var (
	mu   sync.RWMutex
	log  *zap.Logger
	once sync.Once
)

// Init initializes the global logger with console output only
func Init(debug bool) {
	InitWithFile(debug, "")
}

// InitWithFile initializes the global logger with both console and file output.
// Console output goes to stderr so stdout stays free for GeoJSON.
func InitWithFile(debug bool, logFile string) {
	once.Do(func() {
		set(New(debug, os.Stderr, logFile))
	})
}

// New builds a logger writing human-readable entries to console and, when
// logFile is set, JSON entries to a rotated file.
func New(debug bool, console io.Writer, logFile string) *zap.Logger {
	level := zapcore.InfoLevel
	encoderConfig := zap.NewProductionEncoderConfig()
	if debug {
		level = zapcore.DebugLevel
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(console), level),
	}

	if logFile != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    maxSizeMB,
				MaxBackups: maxBackups,
				MaxAge:     maxAgeDays,
			}),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Get returns the global logger
func Get() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(false)
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Replace swaps the global logger and returns a func restoring the previous one
func Replace(l *zap.Logger) func() {
	Init(false)
	mu.Lock()
	prev := log
	log = l
	mu.Unlock()
	return func() { set(prev) }
}

func set(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

// Sync flushes any buffered log entries
func Sync() {
	if l := Get(); l != nil {
		_ = l.Sync()
	}
}
