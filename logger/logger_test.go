package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/gaborage/ridekit/trace"
)

const testMessage = "test message"

// createTestLogger creates a logger that outputs to a buffer for testing
func createTestLogger(level string) (*ZeroLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, level), &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	return logEntry
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		expectedLevel zerolog.Level
	}{
		{name: "debug", level: "debug", expectedLevel: zerolog.DebugLevel},
		{name: "warn", level: "warn", expectedLevel: zerolog.WarnLevel},
		{name: "invalid_defaults_to_info", level: "nope", expectedLevel: zerolog.InfoLevel},
		{name: "empty_defaults_to_info", level: "", expectedLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := createTestLogger(tt.level)
			assert.Equal(t, tt.expectedLevel, l.Level())
		})
	}
}

func TestLogEventFields(t *testing.T) {
	l, buf := createTestLogger("debug")

	l.Info().
		Str("method", "GET").
		Int("status", 200).
		Int64("call_count", 3).
		Bool("retry", true).
		Dur("elapsed", 150*time.Millisecond).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeEntry(t, buf)
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(3), entry["call_count"])
	assert.Equal(t, true, entry["retry"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "elapsed")
}

func TestLogEventMsgf(t *testing.T) {
	l, buf := createTestLogger("info")
	l.Warn().Msgf("attempt %d of %d", 2, 3)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "attempt 2 of 3", entry["message"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	l, buf := createTestLogger("warn")
	l.Debug().Msg("hidden")
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Error().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestStrMasksSensitiveKeys(t *testing.T) {
	l, buf := createTestLogger("info")
	l.Info().Str("access_token", "eyJhbGciOi.secret").Msg(testMessage)

	entry := decodeEntry(t, buf)
	assert.Equal(t, DefaultMaskValue, entry["access_token"])
}

func TestAnyMasksNestedValues(t *testing.T) {
	l, buf := createTestLogger("info")
	l.Info().Any("headers", map[string]string{
		"Authorization": "Bearer abc",
		"Accept":        "application/json",
	}).Msg(testMessage)

	entry := decodeEntry(t, buf)
	headers, ok := entry["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DefaultMaskValue, headers["Authorization"])
	assert.Equal(t, "application/json", headers["Accept"])
}

func TestWithFiltersSensitiveData(t *testing.T) {
	l, buf := createTestLogger("info")
	child := l.With(map[string]any{"component": "session", "token": "abc"})
	child.Info().Msg(testMessage)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, DefaultMaskValue, entry["token"])
}

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }

func TestStringer(t *testing.T) {
	l, buf := createTestLogger("info")
	l.Info().
		Stringer("credential", stringerFunc(func() string { return "***" })).
		Stringer("header", stringerFunc(func() string { return "Bearer abc" })).
		Stringer("missing", nil).
		Msg(testMessage)

	entry := decodeEntry(t, buf)
	assert.Equal(t, "***", entry["credential"])
	assert.Equal(t, DefaultMaskValue, entry["header"])
	assert.Contains(t, entry, "missing")
	assert.Nil(t, entry["missing"])
}

func TestFor(t *testing.T) {
	t.Run("plain context returns same logger", func(t *testing.T) {
		l, _ := createTestLogger("info")
		assert.Same(t, l, l.For(context.Background()))
	})

	t.Run("request id", func(t *testing.T) {
		l, buf := createTestLogger("info")
		ctx := trace.WithRequestID(context.Background(), "req-42")
		l.For(ctx).Info().Msg(testMessage)

		entry := decodeEntry(t, buf)
		assert.Equal(t, "req-42", entry[FieldRequestID])
		assert.NotContains(t, entry, FieldTraceID)
	})

	t.Run("active span", func(t *testing.T) {
		l, buf := createTestLogger("info")
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()
		l.For(ctx).Info().Msg(testMessage)

		entry := decodeEntry(t, buf)
		assert.Equal(t, span.SpanContext().TraceID().String(), entry[FieldTraceID])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry[FieldSpanID])
	})
}

func TestWithPretty(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", WithPretty())
	l.Info().Str("token", "abc").Msg(testMessage)

	out := buf.String()
	assert.Contains(t, out, testMessage)
	assert.NotContains(t, out, "abc")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestWithFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", WithFilter(&FilterConfig{SensitiveFields: []string{"plate"}}))
	l.Info().Str("license_plate", "AB-123").Msg(testMessage)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, DefaultMaskValue, entry["license_plate"])
}

func TestDisabledLevelIsSafe(t *testing.T) {
	l, buf := createTestLogger("error")
	assert.NotPanics(t, func() {
		l.Debug().Str("k", "v").Any("m", map[string]any{"token": "x"}).Dur("d", time.Second).Msgf("%d", 1)
	})
	assert.Zero(t, buf.Len())
}

func TestNop(t *testing.T) {
	l := Nop()
	assert.NotPanics(t, func() {
		l.Error().Str("token", "x").Msg("discarded")
	})
}

func TestCallCounter(t *testing.T) {
	t.Run("tracks attempts and elapsed time", func(t *testing.T) {
		ctx := WithCallCounter(context.Background())
		IncrementCallCounter(ctx)
		IncrementCallCounter(ctx)
		AddCallElapsed(ctx, 1500*time.Microsecond)
		AddCallElapsed(ctx, 500*time.Microsecond)

		assert.Equal(t, int64(2), GetCallCounter(ctx))
		assert.Equal(t, 2*time.Millisecond, GetCallElapsed(ctx))
	})

	t.Run("no-op without counter", func(t *testing.T) {
		ctx := context.Background()
		IncrementCallCounter(ctx)
		AddCallElapsed(ctx, time.Second)

		assert.Zero(t, GetCallCounter(ctx))
		assert.Zero(t, GetCallElapsed(ctx))
	})
}
