package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

var (
	ErrLoggerInvalidLogLevel  = fmt.Errorf("invalid log level")
	ErrLoggerInvalidLogFormat = fmt.Errorf("invalid log format")
)

type options struct {
	writer  io.Writer
	service string
}

type Option func(*options)

// WithWriter sends log output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithService adds a service attribute to every record.
func WithService(name string) Option {
	return func(o *options) {
		o.service = name
	}
}

func NewLogger(logLevel, logFormat string, opts ...Option) (*slog.Logger, error) {
	o := &options{writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	slogLevel, err := getSlogLevel(logLevel)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: slogLevel})
	case "text":
		handler = slog.NewTextHandler(o.writer, &slog.HandlerOptions{Level: slogLevel})
	case "tint":
		handler = tint.NewHandler(o.writer, &tint.Options{Level: slogLevel, TimeFormat: time.Kitchen})
	default:
		return nil, errors.Join(ErrLoggerInvalidLogFormat, fmt.Errorf("log format: %s", logFormat))
	}

	logger := slog.New(handler)
	if o.service != "" {
		logger = logger.With(slog.String("service", o.service))
	}

	return logger, nil
}

func getSlogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToUpper(logLevel) {
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	}

	return slog.LevelInfo, errors.Join(ErrLoggerInvalidLogLevel, fmt.Errorf("log level: %s", logLevel))
}
