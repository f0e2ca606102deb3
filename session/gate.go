// Package session is the entry point for authenticated API calls.
//
// A Gate reads the stored credential once per call, refuses to touch the network when
// none is stored, runs the call under the retry coordinator and turns a rejected
// credential into an error wrapping http.ErrReloginRequired. The gate never deletes
// the credential; see Invalidator for an opt-in policy that does.
package session

import (
	"context"
	"errors"

	"github.com/gaborage/ridekit/http"
	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/retry"
	"github.com/gaborage/ridekit/tokenstore"
)

// Executor performs single attempts against a fixed base URL.
type Executor interface {
	http.Attempter
	BaseURL() string
}

// Credentials yields the stored credential for a call.
type Credentials interface {
	Get(ctx context.Context) (tokenstore.Credential, bool, error)
}

// Observer is notified of the outcome of every call that reached the network.
type Observer interface {
	Observe(ctx context.Context, err error)
}

// Gate wraps every API call with the credential check and the retry policy.
type Gate struct {
	credentials Credentials
	executor    Executor
	coordinator *retry.Coordinator
	logger      logger.Logger
	observers   []Observer
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithObserver registers an outcome observer such as an Invalidator
func WithObserver(o Observer) GateOption {
	return func(g *Gate) {
		if o != nil {
			g.observers = append(g.observers, o)
		}
	}
}

// NewGate creates a gate. The executor's base URL is checked up front; a loopback,
// unset or malformed address fails with a validation error carrying the diagnostic.
func NewGate(creds Credentials, exec Executor, coord *retry.Coordinator, log logger.Logger, opts ...GateOption) (*Gate, error) {
	if v := tokenstore.ValidateServerURI(exec.BaseURL()); !v.Valid {
		return nil, http.NewValidationError(v.Diagnostic, nil)
	}
	g := &Gate{
		credentials: creds,
		executor:    exec,
		coordinator: coord,
		logger:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Do performs one logical call and returns the final successful response.
func (g *Gate) Do(ctx context.Context, ep http.Endpoint) (*http.Response, error) {
	return run(ctx, g, ep, func(resp *http.Response) (*http.Response, error) {
		return resp, nil
	})
}

// Call performs one logical call and decodes the response body into T. A body that
// cannot be decoded is a terminal malformed error; it is not retried.
func Call[T any](ctx context.Context, g *Gate, ep http.Endpoint) (T, error) {
	return run(ctx, g, ep, http.DecodeJSON[T])
}

func run[T any](ctx context.Context, g *Gate, ep http.Endpoint, decode func(*http.Response) (T, error)) (T, error) {
	var zero T

	token, err := g.token(ctx)
	if err != nil {
		return zero, err
	}

	result, err := retry.Run(ctx, g.coordinator, func(ctx context.Context, _ int) (T, error) {
		resp, err := g.executor.Execute(ctx, ep, token.Value())
		if err != nil {
			return zero, err
		}
		return decode(resp)
	})
	g.notify(ctx, err)
	if err == nil {
		return result, nil
	}

	var apiErr *http.Error
	if errors.As(err, &apiErr) && apiErr.Type == http.AuthInvalidError {
		g.logger.For(ctx).Warn().
			Str("path", ep.Path).
			Int("status_code", apiErr.StatusCode).
			Msg("Stored credential rejected, re-login required")
		return zero, http.NewReloginRequiredError(apiErr)
	}
	return zero, err
}

func (g *Gate) token(ctx context.Context) (tokenstore.Credential, error) {
	cred, ok, err := g.credentials.Get(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return "", http.NewCanceledError(ctx.Err())
	case err != nil:
		g.logger.For(ctx).Error().Err(err).Msg("Failed to read stored credential")
		e := http.NewNotAuthenticatedError()
		e.Err = errors.Join(http.ErrNotAuthenticated, err)
		return "", e
	case !ok:
		g.logger.For(ctx).Debug().Msg("No stored credential, call refused")
		return "", http.NewNotAuthenticatedError()
	}
	return cred, nil
}

func (g *Gate) notify(ctx context.Context, err error) {
	for _, o := range g.observers {
		o.Observe(ctx, err)
	}
}

// Get performs a GET request to path
func (g *Gate) Get(ctx context.Context, path string) (*http.Response, error) {
	return g.Do(ctx, http.Endpoint{Path: path, Method: "GET"})
}

// Post performs a POST request with a JSON payload
func (g *Gate) Post(ctx context.Context, path string, payload any) (*http.Response, error) {
	return g.Do(ctx, http.Endpoint{Path: path, Method: "POST", Payload: payload})
}

// Put performs a PUT request with a JSON payload
func (g *Gate) Put(ctx context.Context, path string, payload any) (*http.Response, error) {
	return g.Do(ctx, http.Endpoint{Path: path, Method: "PUT", Payload: payload})
}

// Patch performs a PATCH request with a JSON payload
func (g *Gate) Patch(ctx context.Context, path string, payload any) (*http.Response, error) {
	return g.Do(ctx, http.Endpoint{Path: path, Method: "PATCH", Payload: payload})
}

// Delete performs a DELETE request to path
func (g *Gate) Delete(ctx context.Context, path string) (*http.Response, error) {
	return g.Do(ctx, http.Endpoint{Path: path, Method: "DELETE"})
}
