// Package logger implements the application Logger port on log/slog.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog behind the printf-style application port.
type Logger struct {
	log *slog.Logger
}

// New creates a logger writing to stderr. Debug messages are emitted only
// when debug is true. When file is non-empty, output additionally goes to
// a size-rotated log file.
func New(debug bool, file string) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if file != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		})
	}

	return &Logger{
		log: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(msg, args...))
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}
