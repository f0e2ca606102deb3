package fixtures

import (
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RedirectTransport sends every request to target regardless of its host. The
// original path, query and headers are preserved.
func RedirectTransport(t *testing.T, target string) http.RoundTripper {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)

	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		r := req.Clone(req.Context())
		r.URL.Scheme = u.Scheme
		r.URL.Host = u.Host
		r.Host = u.Host
		return http.DefaultTransport.RoundTrip(r)
	})
}

// RedirectClient wraps RedirectTransport in an http.Client.
func RedirectClient(t *testing.T, target string) *http.Client {
	t.Helper()
	return &http.Client{Transport: RedirectTransport(t, target)}
}

// RefusedTransport fails every request with a dial error wrapping ECONNREFUSED.
// calls may be nil.
func RefusedTransport(calls *atomic.Int32) http.RoundTripper {
	return RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		if calls != nil {
			calls.Add(1)
		}
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	})
}
