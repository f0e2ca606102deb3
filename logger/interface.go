// Package logger is the structured logging facade used across ridekit.
//
// Events are backed by zerolog and every string or value field passes through a
// SensitiveDataFilter, so bearer tokens and store passwords are masked before they
// reach the output.
package logger

import (
	"context"
	"fmt"
	"time"
)

// Logger creates leveled log events and derived loggers.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent

	// With returns a child logger that adds fields to every entry.
	With(fields map[string]any) Logger
	// For returns a child logger correlated with ctx: the request id set with
	// trace.WithRequestID and the active span's trace and span ids.
	For(ctx context.Context) Logger
}

// LogEvent is a log entry under construction. Nothing is written until Msg or Msgf.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Stringer(key string, v fmt.Stringer) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Any(key string, v any) LogEvent
}
