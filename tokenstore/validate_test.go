package tokenstore

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateServerURI(t *testing.T) {
	tests := []struct {
		name      string
		uri       string
		wantValid bool
		contains  string
	}{
		{name: "lan address", uri: "http://192.168.1.10:3000", wantValid: true},
		{name: "public https", uri: "https://api.example.com", wantValid: true},
		{name: "https with path", uri: "https://api.example.com/v1/", wantValid: true},
		{name: "localhost", uri: "http://localhost:3000", contains: "loopback"},
		{name: "localhost uppercase", uri: "http://LOCALHOST:3000", contains: "loopback"},
		{name: "subdomain of localhost", uri: "http://api.localhost", contains: "loopback"},
		{name: "ipv4 loopback", uri: "http://127.0.0.1:8080", contains: "loopback"},
		{name: "ipv4 loopback range", uri: "http://127.1.2.3", contains: "loopback"},
		{name: "ipv6 loopback", uri: "http://[::1]:3000", contains: "loopback"},
		{name: "unspecified", uri: "http://0.0.0.0:3000", contains: "loopback"},
		{name: "empty", uri: "", contains: "not set"},
		{name: "blank", uri: "   ", contains: "not set"},
		{name: "no scheme", uri: "192.168.1.10:3000", contains: "missing a scheme"},
		{name: "unsupported scheme", uri: "ftp://api.example.com", contains: "not supported"},
		{name: "no host", uri: "http://", contains: "no host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateServerURI(tt.uri)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assert.Empty(t, got.Diagnostic)
				return
			}
			assert.Contains(t, got.Diagnostic, tt.contains)
		})
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "rider-42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return s
}

func TestValidateToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		token     string
		wantValid bool
		contains  string
	}{
		{name: "opaque token", token: "sb_abc123", wantValid: true},
		{name: "live jwt", token: signedToken(t, now.Add(time.Hour)), wantValid: true},
		{name: "expired jwt", token: signedToken(t, now.Add(-time.Minute)), contains: "expired at 2026-03-01T11:59:00Z"},
		{name: "dotted non jwt", token: "a.b.c", wantValid: true},
		{name: "empty", token: "", contains: "not set"},
		{name: "bearer prefix", token: "Bearer abc", contains: "Bearer prefix"},
		{name: "whitespace", token: "abc def", contains: "whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateToken(tt.token, now)
			assert.Equal(t, tt.wantValid, got.Valid, got.Diagnostic)
			if !tt.wantValid {
				assert.Contains(t, got.Diagnostic, tt.contains)
			}
		})
	}
}

func TestValidateDispatch(t *testing.T) {
	assert.False(t, Validate("http://localhost:3000").Valid)
	assert.True(t, Validate("https://api.example.com").Valid)
	assert.Contains(t, Validate("192.168.1.10:3000").Diagnostic, "missing a scheme")
	assert.Contains(t, Validate("localhost:3000").Diagnostic, "missing a scheme")
	assert.True(t, Validate("opaque-token").Valid)
	assert.Contains(t, Validate("").Diagnostic, "not set")
}
