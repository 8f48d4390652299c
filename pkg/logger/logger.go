// Package logger provides the structured logger shared by every component of
// the back office. It is a thin wrapper around logrus so call sites can attach
// fields without importing logrus directly.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls how a Logger renders and where it writes.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// Logger is a component-scoped logrus entry.
type Logger struct {
	*logrus.Entry
	base *logrus.Logger
}

// New builds a logger from configuration. Unknown levels fall back to info and
// unknown formats fall back to text.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		base.SetOutput(os.Stdout)
	case "stderr":
		base.SetOutput(os.Stderr)
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "farm-backoffice"
		}
		name := filepath.Clean(prefix + "-" + time.Now().UTC().Format("20060102") + ".log")
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			base.SetOutput(os.Stderr)
			base.WithError(err).Warn("open log file failed; logging to stderr")
		} else {
			base.SetOutput(f)
		}
	default:
		base.SetOutput(os.Stdout)
	}

	return &Logger{Entry: logrus.NewEntry(base), base: base}
}

// NewDefault returns an info-level text logger tagged with the component name.
func NewDefault(component string) *Logger {
	l := New(LoggingConfig{})
	return l.Named(component)
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(component string) *Logger {
	if component == "" {
		return l
	}
	return &Logger{Entry: l.Entry.WithField("component", component), base: l.base}
}

// SetOutput redirects the underlying writer. Tests use it to silence output.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// SetLevel changes the minimum level that is emitted.
func (l *Logger) SetLevel(level string) {
	if parsed, err := logrus.ParseLevel(level); err == nil {
		l.base.SetLevel(parsed)
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := New(LoggingConfig{})
	l.SetOutput(io.Discard)
	return l
}
