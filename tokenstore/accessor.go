package tokenstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaborage/ridekit/logger"
)

// RejectionSuffix is appended to the credential key to form the key that holds
// the consecutive rejection count.
const RejectionSuffix = ".rejections"

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// Accessor binds a Store to the credential key. Reads suspend on the store; writes
// are fire-and-forget. Nothing is cached: every Get reaches the store, so a rotation
// made by another writer is observed on the next call.
type Accessor struct {
	store        Store
	key          string
	logger       logger.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu sync.Mutex
	seq     atomic.Uint64
	pending sync.WaitGroup
}

// AccessorOption configures an Accessor
type AccessorOption func(*Accessor)

// WithKey overrides DefaultKey
func WithKey(key string) AccessorOption {
	return func(a *Accessor) {
		if key != "" {
			a.key = key
		}
	}
}

// WithReadTimeout bounds a single store read
func WithReadTimeout(d time.Duration) AccessorOption {
	return func(a *Accessor) {
		if d > 0 {
			a.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds a background write
func WithWriteTimeout(d time.Duration) AccessorOption {
	return func(a *Accessor) {
		if d > 0 {
			a.writeTimeout = d
		}
	}
}

// NewAccessor creates an accessor over store
func NewAccessor(store Store, log logger.Logger, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		store:        store,
		key:          DefaultKey,
		logger:       log,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key returns the logical key the credential lives under
func (a *Accessor) Key() string {
	return a.key
}

// Get reads the credential. ok is false when none is stored or the stored value is
// blank. Every call performs its own store read, so a write that completed before
// Get started is always observed.
func (a *Accessor) Get(ctx context.Context) (Credential, bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, a.readTimeout)
	defer cancel()

	v, ok, err := a.store.Get(readCtx, a.key)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, err
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", false, nil
	}
	return Credential(v), true, nil
}

// Set persists value in the background and returns immediately. When several writes
// are pending, only the most recent one is applied. Failures are logged without the
// value.
func (a *Accessor) Set(value string) {
	seq := a.seq.Add(1)
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		a.writeMu.Lock()
		defer a.writeMu.Unlock()
		if a.seq.Load() != seq {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.writeTimeout)
		defer cancel()
		if err := a.store.Set(ctx, a.key, value); err != nil {
			a.logger.Error().
				Err(err).
				Str("store_key", a.key).
				Msg("Failed to persist credential")
			return
		}
		a.logger.Debug().Str("store_key", a.key).Msg("Credential persisted")

		// a new credential starts with a clean rejection count
		if err := a.store.Delete(ctx, a.RejectionKey()); err != nil {
			a.logger.Warn().Err(err).Str("store_key", a.RejectionKey()).Msg("Failed to reset rejection count")
		}
	}()
}

// Flush blocks until every pending Set has finished
func (a *Accessor) Flush() {
	a.pending.Wait()
}

// Delete removes the credential synchronously and supersedes any pending Set.
func (a *Accessor) Delete(ctx context.Context) error {
	a.seq.Add(1)
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.store.Delete(ctx, a.key); err != nil {
		return err
	}
	a.logger.Info().Str("store_key", a.key).Msg("Credential deleted")
	return nil
}

// RejectionKey returns the key the consecutive rejection count lives under
func (a *Accessor) RejectionKey() string {
	return a.key + RejectionSuffix
}

// Rejections reads the persisted consecutive rejection count. A missing or
// unparsable value counts as zero.
func (a *Accessor) Rejections(ctx context.Context) (int, error) {
	v, ok, err := a.store.Get(ctx, a.RejectionKey())
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		a.logger.Warn().Str("store_key", a.RejectionKey()).Msg("Ignoring malformed rejection count")
		return 0, nil
	}
	return n, nil
}

// SetRejections persists n synchronously. Zero removes the key.
func (a *Accessor) SetRejections(ctx context.Context, n int) error {
	if n <= 0 {
		if err := a.store.Delete(ctx, a.RejectionKey()); err != nil {
			return fmt.Errorf("failed to reset rejection count: %w", err)
		}
		return nil
	}
	if err := a.store.Set(ctx, a.RejectionKey(), strconv.Itoa(n)); err != nil {
		return fmt.Errorf("failed to persist rejection count: %w", err)
	}
	return nil
}
