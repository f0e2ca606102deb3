package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/testing/fixtures"
	"github.com/gaborage/ridekit/tokenstore"
)

type recordingSetter struct {
	mu     sync.Mutex
	values []string
}

func (s *recordingSetter) Set(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, value)
}

func (s *recordingSetter) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.values...)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestReceiver(setter TokenSetter) *Receiver {
	return New(Config{Path: "/auth/callback", Now: func() time.Time { return fixedNow }}, setter, logger.Nop())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) callbackResponse {
	t.Helper()
	var body callbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCallbackStoresToken(t *testing.T) {
	setter := &recordingSetter{}
	r := newTestReceiver(setter)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?access_token=sb_abc123", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec).Status)
	assert.Equal(t, []string{"sb_abc123"}, setter.got())

	select {
	case <-r.Received():
	default:
		t.Fatal("received channel not closed")
	}
}

func TestCallbackFormPost(t *testing.T) {
	setter := &recordingSetter{}
	r := newTestReceiver(setter)

	form := url.Values{TokenParam: {"form-token"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"form-token"}, setter.got())
}

func TestCallbackTracing(t *testing.T) {
	tp := fixtures.NewTestTraceProvider(t)
	r := New(Config{Now: func() time.Time { return fixedNow }, TracerProvider: tp}, &recordingSetter{}, logger.Nop())

	form := url.Values{TokenParam: {"form-token"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Handler().ServeHTTP(httptest.NewRecorder(), req)

	spans := tp.Spans()
	require.Len(t, spans, 1)
	for _, v := range fixtures.SpanAttributes(spans[0]) {
		assert.NotContains(t, v, "form-token")
	}

	r.Handler().ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/auth/callback?access_token=query-token", nil))
	assert.Len(t, tp.Spans(), 1, "query-carried tokens are not traced")
}

func TestCallbackRejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(-time.Hour)),
	})
	expiredToken, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{name: "missing", query: "", wantErr: "access_token is missing"},
		{name: "blank", query: "?access_token=%20%20", wantErr: "access_token is missing"},
		{name: "bearer prefixed", query: "?access_token=" + url.QueryEscape("Bearer abc"), wantErr: "Bearer prefix"},
		{name: "expired", query: "?access_token=" + expiredToken, wantErr: "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setter := &recordingSetter{}
			r := newTestReceiver(setter)

			rec := httptest.NewRecorder()
			r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec).Error, tt.wantErr)
			assert.Empty(t, setter.got())
		})
	}
}

func TestCallbackUnknownRoute(t *testing.T) {
	r := newTestReceiver(&recordingSetter{})
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode(t, rec).Error)
}

func TestCallbackLogsWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "debug")
	r := New(Config{Now: func() time.Time { return fixedNow }}, &recordingSetter{}, log)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?access_token=super-secret-value", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, buf.String(), "super-secret-value")
	assert.Contains(t, buf.String(), "/auth/callback")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
	}
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestReceiverRun(t *testing.T) {
	t.Run("stops after a token arrives", func(t *testing.T) {
		addr := freeAddr(t)
		store := tokenstore.NewMemoryStore()
		access := tokenstore.NewAccessor(store, logger.Nop())
		r := New(Config{Addr: addr, Now: func() time.Time { return fixedNow }}, access, logger.Nop())

		done := make(chan error, 1)
		go func() { done <- r.Run(context.Background()) }()

		require.Eventually(t, func() bool {
			resp, err := http.Get("http://" + addr + "/health")
			if err != nil {
				return false
			}
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 20*time.Millisecond)

		resp, err := http.Get("http://" + addr + "/auth/callback?access_token=live-token")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("receiver did not stop")
		}

		access.Flush()
		cred, ok, err := access.Get(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "live-token", cred.Value())
	})

	t.Run("context cancellation", func(t *testing.T) {
		r := New(Config{Addr: freeAddr(t)}, &recordingSetter{}, logger.Nop())
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := r.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("already canceled context", func(t *testing.T) {
		r := New(Config{Addr: freeAddr(t)}, &recordingSetter{}, logger.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		done := make(chan error, 1)
		go func() { done <- r.Run(ctx) }()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("receiver did not stop")
		}
	})

	t.Run("address in use", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer l.Close()

		r := New(Config{Addr: l.Addr().String()}, &recordingSetter{}, logger.Nop())
		err = r.Run(context.Background())
		assert.ErrorContains(t, err, "callback listener")
	})
}
