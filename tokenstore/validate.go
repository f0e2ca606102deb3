package tokenstore

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation is the result of a local check. Diagnostic is empty when Valid.
type Validation struct {
	Valid      bool
	Diagnostic string
}

func invalid(format string, args ...any) Validation {
	return Validation{Valid: false, Diagnostic: fmt.Sprintf(format, args...)}
}

var valid = Validation{Valid: true}

// ValidateServerURI checks a backend base URL without touching the network. It rejects
// unset values, values without an http or https scheme, values without a host, and
// loopback hosts, which a physical device cannot reach on the development machine.
func ValidateServerURI(uri string) Validation {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return invalid("server URL is not set")
	}

	if !strings.Contains(uri, "://") {
		return invalid("server URL %q is missing a scheme; use http:// or https://", uri)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return invalid("server URL %q cannot be parsed: %v", uri, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return invalid("server URL scheme %q is not supported; use http:// or https://", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return invalid("server URL %q has no host", uri)
	}
	if isLoopback(host) {
		return invalid("server URL %q points at a loopback address; use the host's LAN address so devices on the network can reach it", uri)
	}

	return valid
}

func isLoopback(host string) bool {
	h := strings.ToLower(host)
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}

// ValidateToken checks a bearer credential locally. Blank values and values that still
// carry the "Bearer " prefix are rejected. Values that parse as JWTs are rejected when
// their exp claim is before now; the signature is not verified, that is the backend's job.
func ValidateToken(token string, now time.Time) Validation {
	if strings.TrimSpace(token) == "" {
		return invalid("token is not set")
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return invalid("token must not include the Bearer prefix")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return invalid("token contains whitespace")
	}

	if strings.Count(token, ".") != 2 {
		// opaque token
		return valid
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// dotted but not a JWT; still opaque as far as the client is concerned
		return valid
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return invalid("token expired at %s", claims.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return valid
}

// Validate dispatches candidate to ValidateServerURI when it looks like an address and
// to ValidateToken otherwise.
func Validate(candidate string) Validation {
	if looksLikeAddress(candidate) {
		return ValidateServerURI(candidate)
	}
	return ValidateToken(candidate, time.Now())
}

func looksLikeAddress(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if strings.Contains(s, "://") || strings.HasPrefix(strings.ToLower(s), "localhost") {
		return true
	}
	hostPort := s
	if i := strings.Index(hostPort, "/"); i >= 0 {
		hostPort = hostPort[:i]
	}
	if _, _, err := net.SplitHostPort(hostPort); err == nil {
		return true
	}
	return net.ParseIP(hostPort) != nil
}
