package logger

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/ridekit/trace"
)

// Field names added by For
const (
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
)

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zlog   zerolog.Logger
	filter *SensitiveDataFilter
}

var _ Logger = (*ZeroLogger)(nil)

// Option configures New
type Option func(*options)

type options struct {
	pretty bool
	filter *FilterConfig
}

// WithPretty renders human readable console output instead of JSON lines
func WithPretty() Option {
	return func(o *options) { o.pretty = true }
}

// WithFilter replaces DefaultFilterConfig
func WithFilter(cfg *FilterConfig) Option {
	return func(o *options) { o.filter = cfg }
}

var callerMarshalOnce sync.Once

// setCallerMarshal shortens caller paths to "package/file.go:line"
func setCallerMarshal() {
	callerMarshalOnce.Do(func() {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			base := filepath.Base(file)
			parent := filepath.Base(filepath.Dir(file))
			if parent != "." && parent != "" {
				return parent + "/" + base + ":" + strconv.Itoa(line)
			}
			return base + ":" + strconv.Itoa(line)
		}
	})
}

// ParseLevel maps a level name to zerolog. Unknown or empty names yield info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level string, opts ...Option) *ZeroLogger {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	setCallerMarshal()
	if o.pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).
		Level(ParseLevel(level)).
		With().Timestamp().CallerWithSkipFrameCount(3).
		Logger()

	return &ZeroLogger{zlog: zl, filter: NewSensitiveDataFilter(o.filter)}
}

// Nop returns a logger that discards everything
func Nop() *ZeroLogger {
	return &ZeroLogger{zlog: zerolog.Nop(), filter: NewSensitiveDataFilter(nil)}
}

// Level returns the minimum level that is written
func (l *ZeroLogger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

func (l *ZeroLogger) Debug() LogEvent {
	return event{ev: l.zlog.Debug(), filter: l.filter}
}

func (l *ZeroLogger) Info() LogEvent {
	return event{ev: l.zlog.Info(), filter: l.filter}
}

func (l *ZeroLogger) Warn() LogEvent {
	return event{ev: l.zlog.Warn(), filter: l.filter}
}

func (l *ZeroLogger) Error() LogEvent {
	return event{ev: l.zlog.Error(), filter: l.filter}
}

// With returns a child logger. Sensitive fields are masked once, here.
func (l *ZeroLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	return &ZeroLogger{
		zlog:   l.zlog.With().Fields(l.filter.FilterFields(fields)).Logger(),
		filter: l.filter,
	}
}

// For returns l unchanged when ctx carries neither a request id nor a valid span.
func (l *ZeroLogger) For(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	fields := map[string]any{}
	if id, ok := trace.RequestIDFromContext(ctx); ok {
		fields[FieldRequestID] = id
	}
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		fields[FieldTraceID] = sc.TraceID().String()
		fields[FieldSpanID] = sc.SpanID().String()
	}
	return l.With(fields)
}
