package session

import (
	"context"
	"sync"

	"github.com/gaborage/ridekit/http"
	"github.com/gaborage/ridekit/logger"
)

// DefaultInvalidateAfter is the number of consecutive rejections before the
// credential is deleted.
const DefaultInvalidateAfter = 2

// Deleter removes the stored credential.
type Deleter interface {
	Delete(ctx context.Context) error
}

// RejectionCounter holds the consecutive rejection count. tokenstore.Accessor
// implements it on top of the token store, so the count survives process restarts.
type RejectionCounter interface {
	Rejections(ctx context.Context) (int, error)
	SetRejections(ctx context.Context, n int) error
}

// InvalidatorOption configures an Invalidator
type InvalidatorOption func(*Invalidator)

// WithRejectionCounter keeps the count in c instead of process memory.
func WithRejectionCounter(c RejectionCounter) InvalidatorOption {
	return func(i *Invalidator) {
		if c != nil {
			i.counter = c
		}
	}
}

// Invalidator deletes the stored credential once the backend has rejected it on
// several consecutive calls. A successful call resets the count. Other failures
// leave it unchanged.
type Invalidator struct {
	deleter   Deleter
	logger    logger.Logger
	threshold int
	counter   RejectionCounter

	mu sync.Mutex
}

// NewInvalidator creates an invalidator. threshold < 1 uses DefaultInvalidateAfter.
func NewInvalidator(d Deleter, log logger.Logger, threshold int, opts ...InvalidatorOption) *Invalidator {
	if threshold < 1 {
		threshold = DefaultInvalidateAfter
	}
	i := &Invalidator{deleter: d, logger: log, threshold: threshold, counter: &memoryCounter{}}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Observe implements Observer. Store I/O runs detached from the caller's
// cancellation.
func (i *Invalidator) Observe(ctx context.Context, err error) {
	if err != nil && !http.IsErrorType(err, http.AuthInvalidError) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := i.logger.For(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()

	if err == nil {
		if rerr := i.counter.SetRejections(ctx, 0); rerr != nil {
			log.Warn().Err(rerr).Msg("Failed to reset rejection count")
		}
		return
	}

	n, rerr := i.counter.Rejections(ctx)
	if rerr != nil {
		log.Warn().Err(rerr).Msg("Failed to read rejection count")
	}
	n++
	if n < i.threshold {
		if rerr := i.counter.SetRejections(ctx, n); rerr != nil {
			log.Warn().Err(rerr).Msg("Failed to persist rejection count")
		}
		return
	}

	if rerr := i.counter.SetRejections(ctx, 0); rerr != nil {
		log.Warn().Err(rerr).Msg("Failed to reset rejection count")
	}
	if err := i.deleter.Delete(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to delete rejected credential")
		return
	}
	log.Warn().Int("threshold", i.threshold).Msg("Rejected credential deleted")
}

// Failures returns the current consecutive rejection count
func (i *Invalidator) Failures() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n, _ := i.counter.Rejections(context.Background())
	return n
}

// memoryCounter keeps the count for the life of the process. Callers hold
// Invalidator.mu.
type memoryCounter struct {
	n int
}

func (c *memoryCounter) Rejections(context.Context) (int, error) {
	return c.n, nil
}

func (c *memoryCounter) SetRejections(_ context.Context, n int) error {
	c.n = n
	return nil
}
