package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	entry *logrus.Entry
	debug bool
}

type Options struct {
	Debug  bool
	Format string // "text" or "json"
	Output io.Writer
}

func NewLogger(debug bool) *Logger {
	return New(Options{Debug: debug})
}

func New(opts Options) *Logger {
	l := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}

	if opts.Debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	return &Logger{entry: logrus.NewEntry(l), debug: opts.Debug}
}

// Discard returns a logger that drops everything. Used by tests and library callers.
func Discard() *Logger {
	return New(Options{Output: io.Discard})
}

func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), debug: l.debug}
}

func (l *Logger) IsDebug() bool {
	return l.debug
}

func (l *Logger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}
