// Package tokenstore reads and writes the bearer credential used by the API client
// and performs local, network-free checks on server URLs and tokens.
//
// The client never owns credential storage: it is handed a Store capability at
// construction. MemoryStore and RedisStore are provided; any key/value backend that
// satisfies Store can be used instead.
package tokenstore

import (
	"context"
	"errors"
)

// DefaultKey is the logical key the credential is stored under
const DefaultKey = "accessToken"

// ErrStoreClosed is returned by backends that have been shut down
var ErrStoreClosed = errors.New("token store closed")

// Store is a key/value persistence capability. Implementations must allow concurrent
// readers and make a completed Set visible atomically to subsequent Gets.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Credential is an opaque bearer token. Its String form is masked so it can be
// passed to loggers and fmt verbs safely.
type Credential string

// Value returns the raw token
func (c Credential) Value() string {
	return string(c)
}

// String implements fmt.Stringer with the token masked
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "***"
}

// GoString masks the token for %#v as well
func (c Credential) GoString() string {
	return `tokenstore.Credential("***")`
}
