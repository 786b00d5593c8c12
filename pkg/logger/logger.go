package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type ctxKey struct{}

// Init initializes the global logger
func Init(serviceName string, isDevelopment bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = os.Stdout

	if isDevelopment {
		// Pretty print for development
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	// Set as global logger
	log.Logger = Logger
}

// WithRequestID returns a context whose logger carries the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// WithContext returns a logger with the request id from context, if any
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Logger.With().Logger()
	if ctx != nil {
		if id, ok := ctx.Value(ctxKey{}).(string); ok {
			l = l.With().Str("request_id", id).Logger()
		}
	}
	return &l
}

func Info(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Info()
}

func Error(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Error()
}

func Debug(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Debug()
}

func Warn(ctx context.Context) *zerolog.Event {
	return WithContext(ctx).Warn()
}

// SetLevel sets the global log level
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
