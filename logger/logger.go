// Package logger provides standardized logging for the nanoScript tools
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Global logger instance
var defaultLogger *slog.Logger

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel accepts debug, info, warn (or warning) and error.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("logger: unknown level %q", s)
}

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		Format: "text",
		Output: os.Stderr,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. The returned closer releases the log file,
// if one was opened.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("logger: open log file: %w", err)
		}
		output, closer = file, file
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
	return slog.New(handler), closer, nil
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) (io.Closer, error) {
	l, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	defaultLogger = l
	slog.SetDefault(l)
	return closer, nil
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the global logger, falling back to slog's default.
func L() *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger
	}
	return slog.Default()
}

// Debug logs a debug message
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info logs an info message
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs a warning message
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error logs an error message
func Error(msg string, args ...any) { L().Error(msg, args...) }

// Pipeline helpers

// LogLexing logs lexing activity
func LogLexing(file string, tokenCount int) {
	Debug("lexing complete", "file", file, "tokens", tokenCount)
}

// LogParsing logs parsing activity
func LogParsing(file string, stmtCount int) {
	Debug("parsing complete", "file", file, "statements", stmtCount)
}

// LogRunComplete logs the end of a script run
func LogRunComplete(file string, duration string, err error) {
	if err != nil {
		Info("run failed", "file", file, "duration", duration, "error", err)
		return
	}
	Info("run complete", "file", file, "duration", duration)
}
