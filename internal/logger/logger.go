package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sink is the logging surface injected into pipeline components
type Sink interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	DebugWithFields(msg string, fields []Field, args ...interface{})
	InfoWithFields(msg string, fields []Field, args ...interface{})
	ErrorWithFields(msg string, fields []Field, args ...interface{})
}

// Options configures a logger
type Options struct {
	Level   string    // trace|debug|info|warn|error
	Format  string    // console|json
	File    string    // optional log file, written in addition to Console
	Console io.Writer // defaults to os.Stderr
	NoColor bool
}

// Logger provides structured logging scoped to a component
type Logger struct {
	component string
	base      zerolog.Logger
	zl        zerolog.Logger
	file      *os.File
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger instance
func New(component string, opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{formatWriter(console, opts.Format, opts.NoColor)}

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		// #nosec G304 - path comes from validated configuration
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		file = f
		writers = append(writers, formatWriter(f, opts.Format, true))
	}

	base := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()

	return &Logger{
		component: component,
		base:      base,
		zl:        withComponent(base, component),
		file:      file,
	}, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	nop := zerolog.Nop()
	return &Logger{base: nop, zl: nop}
}

// WithComponent creates a logger with a specific component name.
// The returned logger shares outputs with its parent and must not be closed.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component: component,
		base:      l.base,
		zl:        withComponent(l.base, component),
	}
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msgf(msg, args...)
}

// Info logs informational messages
func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msgf(msg, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msgf(msg, args...)
}

// Error logs error messages
func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msgf(msg, args...)
}

// DebugWithFields logs debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	withFields(l.zl.Debug(), fields).Msgf(msg, args...)
}

// InfoWithFields logs info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	withFields(l.zl.Info(), fields).Msgf(msg, args...)
}

// ErrorWithFields logs error message with structured fields
func (l *Logger) ErrorWithFields(msg string, fields []Field, args ...interface{}) {
	withFields(l.zl.Error(), fields).Msgf(msg, args...)
}

// ParseLevel converts a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func formatWriter(w io.Writer, format string, noColor bool) io.Writer {
	if format == "json" {
		return w
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    noColor,
	}
}

func withComponent(base zerolog.Logger, component string) zerolog.Logger {
	if component == "" {
		component = "main"
	}
	return base.With().Str("component", component).Logger()
}

// withFields attaches typed fields to an event
func withFields(ev *zerolog.Event, fields []Field) *zerolog.Event {
	for _, field := range fields {
		switch v := field.Value.(type) {
		case string:
			ev = ev.Str(field.Key, v)
		case int:
			ev = ev.Int(field.Key, v)
		case int64:
			ev = ev.Int64(field.Key, v)
		case float64:
			ev = ev.Float64(field.Key, v)
		case bool:
			ev = ev.Bool(field.Key, v)
		case time.Duration:
			ev = ev.Dur(field.Key, v)
		case error:
			ev = ev.AnErr(field.Key, v)
		default:
			ev = ev.Interface(field.Key, v)
		}
	}
	return ev
}

// Helper functions for common field types
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}
