package testing

import "time"

// Endpoints and credentials shared across test files.
const (
	// TestBaseURL is a public base URL that passes server URL validation. Tests
	// route it to a local server with fixtures.RedirectTransport.
	TestBaseURL = "https://api.example.com"
	// TestToken is an opaque bearer token
	TestToken = "sb_test_token"
	// TestTokenKey is a non-default store key
	TestTokenKey = "riderToken"
)

// Retry timings small enough to keep unit tests fast.
const (
	TestBaseDelay   = 10 * time.Millisecond
	TestMaxAttempts = 3
)
