package kafka

import (
	"time"

	"github.com/go-kit/log"
	"golang.org/x/time/rate"
)

// Logger is the logging seam every component of this library writes
// through: the connection layer, the Base client, the producer, the
// consumer group. Its method set matches github.com/go-kit/log.Logger
// structurally, so any go-kit logger (or this package's own Logger) can
// be passed directly to internal/kconn.Options.Logger without an adapter.
type Logger interface {
	Log(keyvals ...interface{}) error
}

type nopLogger struct{}

func (nopLogger) Log(...interface{}) error { return nil }

// NewLogger wraps a go-kit logger with this library's default
// structured-log shape: UTC timestamp and calling file:line.
func NewLogger(base log.Logger) Logger {
	return log.With(base, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// RateLimitedLogger throttles a wrapped Logger to at most logsPerSecond
// Log calls per second, silently dropping the rest. Callers can wrap
// their logger in one so a flapping broker doesn't flood their log sink;
// the library does not apply it itself.
type RateLimitedLogger struct {
	limiter *rate.Limiter
	logger  Logger
}

// NewRateLimitedLogger builds a RateLimitedLogger around logger.
func NewRateLimitedLogger(logger Logger, logsPerSecond int) *RateLimitedLogger {
	return &RateLimitedLogger{
		limiter: rate.NewLimiter(rate.Limit(logsPerSecond), 1),
		logger:  logger,
	}
}

func (l *RateLimitedLogger) Log(keyvals ...interface{}) error {
	if !l.limiter.AllowN(time.Now(), 1) {
		return nil
	}
	return l.logger.Log(keyvals...)
}
