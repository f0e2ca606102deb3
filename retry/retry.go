// Package retry runs a call thunk under a bounded, linear backoff policy.
//
// The loop is Attempt -> Decide -> {Retry | Terminal}. Decide is a pure function of
// the attempt error, the attempt index and the policy, so the policy can be tested
// without a network or real timers. Only network errors are retried; every other
// classified failure is returned at once. Waiting goes through an injectable Sleeper.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/gaborage/ridekit/http"
	"github.com/gaborage/ridekit/logger"
)

const (
	// DefaultMaxAttempts is the default number of attempts per call
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the default delay unit for linear backoff
	DefaultBaseDelay = 1000 * time.Millisecond
)

// Policy bounds a call. The wait after failed attempt i (1-based) is BaseDelay × i.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns 3 attempts with a 1s base delay
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Normalize returns a copy with invalid values replaced:
//   - MaxAttempts < 1 becomes 1 (single attempt)
//   - BaseDelay <= 0 becomes DefaultBaseDelay
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// DelayAfter returns the wait that follows failed attempt n
func (p Policy) DelayAfter(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Delays lists every wait the policy may perform, in order
func (p Policy) Delays() []time.Duration {
	p = p.Normalize()
	delays := make([]time.Duration, 0, p.MaxAttempts-1)
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		delays = append(delays, p.DelayAfter(attempt))
	}
	return delays
}

// Verdict is what the coordinator does after an attempt
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictRetry
	VerdictTerminal
)

func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "success"
	case VerdictRetry:
		return "retry"
	case VerdictTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Decide
type Decision struct {
	Verdict Verdict
	Type    http.ErrorType
	Delay   time.Duration
}

// Decide classifies the result of attempt (1-based) under p. It performs no I/O.
func Decide(err error, attempt int, p Policy) Decision {
	if err == nil {
		return Decision{Verdict: VerdictSuccess}
	}
	p = p.Normalize()
	errType := http.TypeOf(err)
	if errType == http.NetworkError && attempt < p.MaxAttempts {
		return Decision{Verdict: VerdictRetry, Type: errType, Delay: p.DelayAfter(attempt)}
	}
	return Decision{Verdict: VerdictTerminal, Type: errType}
}

// Sleeper suspends the caller for d or until ctx is done, returning ctx.Err() in
// the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the timer-backed Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Coordinator re-invokes a thunk according to a Policy
type Coordinator struct {
	policy Policy
	sleep  Sleeper
	logger logger.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithSleeper replaces the timer-backed sleeper
func WithSleeper(s Sleeper) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sleep = s
		}
	}
}

// NewCoordinator creates a coordinator; the policy is normalized
func NewCoordinator(policy Policy, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		policy: policy.Normalize(),
		sleep:  SleepContext,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the normalized policy in use
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// Run invokes fn up to MaxAttempts times. There is no wait before the first attempt or
// after the last. The final failure is returned unchanged (with Attempts recorded when
// it is an *http.Error). A context that is done before an attempt or during a wait
// ends the call with a canceled error; no attempt is started after that.
func Run[T any](ctx context.Context, c *Coordinator, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, canceled(err, attempt-1)
		}

		result, err := fn(ctx, attempt)
		decision := Decide(err, attempt, c.policy)

		switch decision.Verdict {
		case VerdictSuccess:
			return result, nil
		case VerdictTerminal:
			recordAttempts(err, attempt)
			return result, err
		}

		c.logger.For(ctx).Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.policy.MaxAttempts).
			Dur("delay", decision.Delay).
			Str("error_type", string(decision.Type)).
			Msg("Retrying API call")

		if err := c.sleep(ctx, decision.Delay); err != nil {
			return zero, canceled(err, attempt)
		}
	}
}

func canceled(err error, attempts int) error {
	e := http.NewCanceledError(err)
	e.Attempts = attempts
	return e
}

func recordAttempts(err error, attempts int) {
	var e *http.Error
	if errors.As(err, &e) {
		e.Attempts = attempts
	}
}
