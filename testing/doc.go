// Package testing provides shared test utilities for ridekit packages.
//
// # Mocks
//
// The mocks subpackage provides testify-based mock implementations of the
// client's capabilities:
//   - Token persistence (tokenstore.Store)
//
// # Fixtures
//
// The fixtures subpackage provides helpers for common scenarios:
//   - Transports that route a production base URL to an httptest server
//   - Transports that fail every dial the way a refused connection does
//   - A recording retry sleeper that never blocks
//   - In-memory trace and meter providers for telemetry assertions
//
// # Containers
//
// The containers subpackage (build tag "integration") starts real backends with
// testcontainers and skips the test when Docker is unavailable.
//
// # Usage
//
//	import (
//		"github.com/gaborage/ridekit/testing/fixtures"
//		"github.com/gaborage/ridekit/testing/mocks"
//	)
package testing
