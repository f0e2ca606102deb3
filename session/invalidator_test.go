package session

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/ridekit/http"
	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/testing/fixtures"
	"github.com/gaborage/ridekit/testing/mocks"
	"github.com/gaborage/ridekit/tokenstore"
)

type deleterFunc func(ctx context.Context) error

func (f deleterFunc) Delete(ctx context.Context) error { return f(ctx) }

func TestInvalidatorCounts(t *testing.T) {
	deletes := 0
	inv := NewInvalidator(deleterFunc(func(context.Context) error {
		deletes++
		return nil
	}), logger.Nop(), 0)

	ctx := context.Background()
	rejected := http.NewStatusError("unauthorized", 401, nil)

	inv.Observe(ctx, rejected)
	assert.Equal(t, 1, inv.Failures())

	inv.Observe(ctx, http.NewStatusError("boom", 500, nil))
	assert.Equal(t, 1, inv.Failures(), "other failures leave the count unchanged")

	inv.Observe(ctx, nil)
	assert.Zero(t, inv.Failures(), "success resets")

	inv.Observe(ctx, rejected)
	inv.Observe(ctx, rejected)
	assert.Equal(t, 1, deletes)
	assert.Zero(t, inv.Failures())
}

func TestInvalidatorDeleteFailure(t *testing.T) {
	store := &mocks.MockStore{}
	store.ExpectDelete(tokenstore.DefaultKey, errors.New("store offline")).Once()
	inv := NewInvalidator(tokenstore.NewAccessor(store, logger.Nop()), logger.Nop(), 1)

	assert.NotPanics(t, func() {
		inv.Observe(context.Background(), http.NewStatusError("forbidden", 403, nil))
	})
	assert.Zero(t, inv.Failures())
	store.AssertExpectations(t)
}

func TestInvalidatorDeletesDetachedFromCallerContext(t *testing.T) {
	store := &mocks.MockStore{}
	store.On("Delete", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), tokenstore.DefaultKey).Return(nil).Once()
	inv := NewInvalidator(tokenstore.NewAccessor(store, logger.Nop()), logger.Nop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv.Observe(ctx, http.NewStatusError("unauthorized", 401, nil))
	store.AssertExpectations(t)
}

func TestGateWithInvalidator(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusUnauthorized)
	}))
	defer server.Close()

	var inv *Invalidator
	f := newFixture(t, fixtures.RedirectTransport(t, server.URL), "stale", WithObserver(deferredObserver(func() Observer { return inv })))
	inv = NewInvalidator(f.access, logger.Nop(), 2)
	ctx := context.Background()

	_, err := f.gate.Get(ctx, "/me")
	assert.ErrorIs(t, err, http.ErrReloginRequired)
	_, ok, err := f.store.Get(ctx, tokenstore.DefaultKey)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.gate.Get(ctx, "/me")
	assert.ErrorIs(t, err, http.ErrReloginRequired)
	_, ok, err = f.store.Get(ctx, tokenstore.DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.gate.Get(ctx, "/me")
	assert.ErrorIs(t, err, http.ErrNotAuthenticated)
}

func TestInvalidatorPersistentCount(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStoreWith(map[string]string{tokenstore.DefaultKey: "stale"})
	access := tokenstore.NewAccessor(store, logger.Nop())
	rejected := http.NewStatusError("unauthorized", 401, nil)

	// each invalidator stands for one short-lived process sharing the store
	newRun := func() *Invalidator {
		return NewInvalidator(access, logger.Nop(), 2, WithRejectionCounter(access))
	}

	newRun().Observe(ctx, rejected)
	stored, ok, err := store.Get(ctx, access.RejectionKey())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", stored)
	_, ok, _ = store.Get(ctx, tokenstore.DefaultKey)
	assert.True(t, ok)

	newRun().Observe(ctx, rejected)
	_, ok, _ = store.Get(ctx, tokenstore.DefaultKey)
	assert.False(t, ok, "second consecutive rejection deletes the credential")
	_, ok, _ = store.Get(ctx, access.RejectionKey())
	assert.False(t, ok, "count is cleared once it fires")
}

func TestInvalidatorPersistentCountResetsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStoreWith(map[string]string{tokenstore.DefaultKey: "tok"})
	access := tokenstore.NewAccessor(store, logger.Nop())
	rejected := http.NewStatusError("forbidden", 403, nil)

	NewInvalidator(access, logger.Nop(), 2, WithRejectionCounter(access)).Observe(ctx, rejected)
	inv := NewInvalidator(access, logger.Nop(), 2, WithRejectionCounter(access))
	assert.Equal(t, 1, inv.Failures())

	inv.Observe(ctx, nil)
	assert.Zero(t, inv.Failures())

	NewInvalidator(access, logger.Nop(), 2, WithRejectionCounter(access)).Observe(ctx, rejected)
	_, ok, _ := store.Get(ctx, tokenstore.DefaultKey)
	assert.True(t, ok)
}

// deferredObserver resolves the observer at call time so a fixture can be built first.
type deferredObserver func() Observer

func (d deferredObserver) Observe(ctx context.Context, err error) {
	d().Observe(ctx, err)
}
