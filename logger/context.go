package logger

import (
	"context"
	"sync/atomic"
	"time"
)

// statsKey is the context key for per-operation API call statistics
type statsKey struct{}

// callStats accumulates the attempts made on behalf of one caller operation
type callStats struct {
	attempts atomic.Int64
	elapsed  atomic.Int64
}

// WithCallCounter returns a context that accumulates API attempt counts and time
// spent on the wire. Every attempt made with the returned context, including
// retries, is counted.
func WithCallCounter(ctx context.Context) context.Context {
	return context.WithValue(ctx, statsKey{}, &callStats{})
}

func statsFrom(ctx context.Context) *callStats {
	s, _ := ctx.Value(statsKey{}).(*callStats)
	return s
}

// IncrementCallCounter records one attempt. It is a no-op without WithCallCounter.
func IncrementCallCounter(ctx context.Context) {
	if s := statsFrom(ctx); s != nil {
		s.attempts.Add(1)
	}
}

// AddCallElapsed records time spent on one attempt
func AddCallElapsed(ctx context.Context, d time.Duration) {
	if s := statsFrom(ctx); s != nil {
		s.elapsed.Add(int64(d))
	}
}

// GetCallCounter returns the attempts recorded so far
func GetCallCounter(ctx context.Context) int64 {
	if s := statsFrom(ctx); s != nil {
		return s.attempts.Load()
	}
	return 0
}

// GetCallElapsed returns the total attempt time recorded so far
func GetCallElapsed(ctx context.Context) time.Duration {
	if s := statsFrom(ctx); s != nil {
		return time.Duration(s.elapsed.Load())
	}
	return 0
}
