package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/trace"
)

const (
	// DefaultTimeout is the default per-attempt timeout
	DefaultTimeout = 15 * time.Second

	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
)

// Executor issues single HTTP attempts against one backend base URL.
// It never retries; see the retry package for that.
type Executor struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	limiter    *rate.Limiter
	telemetry  *telemetry
	callCount  int64
}

var _ Attempter = (*Executor)(nil)

// NewExecutor creates an executor with default configuration for baseURL
func NewExecutor(log logger.Logger, baseURL string) *Executor {
	return NewBuilder(log, baseURL).Build()
}

// Builder provides a fluent interface for configuring the executor
type Builder struct {
	config         *Config
	logger         logger.Logger
	httpClient     *nethttp.Client
	tracerProvider oteltrace.TracerProvider
	meterProvider  metric.MeterProvider
}

// NewBuilder creates a new executor builder
func NewBuilder(log logger.Logger, baseURL string) *Builder {
	return &Builder{
		config: &Config{
			BaseURL:             baseURL,
			Timeout:             DefaultTimeout,
			RequestInterceptors: []RequestInterceptor{},
			DefaultHeaders:      make(map[string]string),
		},
		logger: log,
	}
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout > 0 {
		b.config.Timeout = timeout
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithRateLimit throttles outbound attempts to rps with the given burst. rps <= 0 disables it.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = rps
	b.config.RateBurst = burst
	return b
}

// WithHTTPClient replaces the underlying *http.Client (transport injection for tests).
func (b *Builder) WithHTTPClient(c *nethttp.Client) *Builder {
	b.httpClient = c
	return b
}

// WithTracerProvider sets the tracer provider; the global one is used otherwise
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMeterProvider sets the meter provider; the global one is used otherwise
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// Build creates the executor with the configured options
func (b *Builder) Build() *Executor {
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}

	var limiter *rate.Limiter
	if b.config.RateLimit > 0 {
		burst := b.config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(b.config.RateLimit), burst)
	}

	return &Executor{
		httpClient: httpClient,
		logger:     b.logger,
		config:     b.config,
		limiter:    limiter,
		telemetry:  newTelemetry(b.tracerProvider, b.meterProvider),
	}
}

// BaseURL returns the configured base URL
func (e *Executor) BaseURL() string {
	return e.config.BaseURL
}

// Timeout returns the per-attempt timeout
func (e *Executor) Timeout() time.Duration {
	return e.config.Timeout
}

// Execute performs exactly one attempt. On a non-2xx status both the response and a
// classified *Error are returned.
func (e *Executor) Execute(ctx context.Context, ep Endpoint, token string) (*Response, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	body, err := encodePayload(ep.Payload)
	if err != nil {
		return nil, NewValidationError("payload cannot be encoded as JSON", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewCanceledError(err)
	}

	// The limiter wait counts against the attempt timeout.
	attemptCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	if e.limiter != nil {
		if err := e.limiter.Wait(attemptCtx); err != nil {
			return nil, e.rateLimitFailure(ctx, attemptCtx, err)
		}
	}

	method := ep.MethodOrDefault()
	url := JoinURL(e.config.BaseURL, ep.Path)
	callCount := atomic.AddInt64(&e.callCount, 1)
	logger.IncrementCallCounter(ctx)

	attemptCtx, span := e.telemetry.start(attemptCtx, method, ep.Path)

	start := time.Now()
	resp, statusCode, err := e.attempt(ctx, attemptCtx, method, url, body, ep, token, callCount)
	elapsed := time.Since(start)
	logger.AddCallElapsed(ctx, elapsed)

	e.telemetry.finish(ctx, span, method, statusCode, TypeOf(err), elapsed, err)
	return resp, err
}

func (e *Executor) attempt(callerCtx, attemptCtx context.Context, method, url string, body []byte, ep Endpoint, token string, callCount int64) (*Response, int, error) {
	httpReq, err := e.buildRequest(attemptCtx, method, url, body, ep, token)
	if err != nil {
		return nil, 0, err
	}
	requestID := httpReq.Header.Get(trace.HeaderXRequestID)
	logCtx := trace.WithRequestID(attemptCtx, requestID)
	e.logRequest(logCtx, method, url, len(body))

	start := time.Now()
	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		failure := e.transportFailure(callerCtx, err)
		e.logFailure(logCtx, method, url, failure)
		return nil, 0, failure
	}

	resp, err := e.buildResponse(callerCtx, start, callCount, requestID, httpResp)
	if err != nil {
		e.logFailure(logCtx, method, url, err)
		return nil, httpResp.StatusCode, err
	}
	e.logResponse(logCtx, resp)

	if IsSuccessStatus(resp.StatusCode) {
		return resp, resp.StatusCode, nil
	}

	return resp, resp.StatusCode, NewStatusError(
		errorMessage(resp.StatusCode, resp.Body),
		resp.StatusCode,
		resp.Body,
	)
}

// transportFailure classifies an error that prevented any response from arriving.
func (e *Executor) transportFailure(callerCtx context.Context, err error) *Error {
	out := NormalizeTransportError(callerCtx, err)
	if Classify(out) == CanceledError {
		return NewCanceledError(callerCtx.Err())
	}
	if out.Timeout() {
		return NewNetworkError(fmt.Sprintf("no response within %v", e.config.Timeout), out.Cause, err)
	}
	return NewNetworkError("request execution failed", out.Cause, err)
}

// rateLimitFailure reports canceled when the caller's own deadline or cancellation
// cut the wait short, and a network timeout when the attempt timeout did.
func (e *Executor) rateLimitFailure(callerCtx, attemptCtx context.Context, err error) *Error {
	if cause := callerCtx.Err(); cause != nil {
		return NewCanceledError(cause)
	}
	callerDeadline, ok := callerCtx.Deadline()
	attemptDeadline, _ := attemptCtx.Deadline()
	if ok && !callerDeadline.After(attemptDeadline) {
		return NewCanceledError(context.DeadlineExceeded)
	}
	return NewNetworkError(fmt.Sprintf("rate limit wait exceeds attempt timeout %v", e.config.Timeout), CauseTimeout, err)
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}

// buildRequest constructs an *http.Request, applies headers/auth, and runs request interceptors.
func (e *Executor) buildRequest(ctx context.Context, method, url string, body []byte, ep Endpoint, token string) (*nethttp.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request", err)
	}

	e.applyHeaders(ctx, httpReq, ep, token)

	for _, interceptor := range e.config.RequestInterceptors {
		if err := interceptor(ctx, httpReq); err != nil {
			return nil, NewValidationError("request interceptor failed", err)
		}
	}
	return httpReq, nil
}

// applyHeaders applies headers to the HTTP request
func (e *Executor) applyHeaders(ctx context.Context, httpReq *nethttp.Request, ep Endpoint, token string) {
	// Apply default headers first
	for key, value := range e.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	// Apply request-specific headers (these override defaults)
	for key, value := range ep.Headers {
		httpReq.Header.Set(key, value)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	if httpReq.Header.Get(headerAccept) == "" {
		httpReq.Header.Set(headerAccept, contentTypeJSON)
	}
	if token != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+token)
	}

	trace.InjectHeaders(ctx, httpReq.Header)
}

// buildResponse reads the body and builds a Response.
func (e *Executor) buildResponse(callerCtx context.Context, start time.Time, callCount int64, requestID string, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, e.transportFailure(callerCtx, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		RequestID:  requestID,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}, nil
}

// errorBody is the structured error shape the backend returns.
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// errorMessage extracts {message} or {error} from a failed response body.
func errorMessage(statusCode int, body []byte) string {
	fallback := fmt.Sprintf("request failed with status %d", statusCode)
	if len(bytes.TrimSpace(body)) == 0 {
		return fallback
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}
	if eb.Message != "" {
		return eb.Message
	}
	if len(eb.Error) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(eb.Error, &s); err == nil && s != "" {
		return s
	}
	var nested errorBody
	if err := json.Unmarshal(eb.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	return fallback
}

// DecodeJSON decodes a successful response body into T. An empty body yields the
// zero value; an undecodable one yields a malformed error.
func DecodeJSON[T any](resp *Response) (T, error) {
	var out T
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, NewMalformedError(resp.StatusCode, resp.Body, err)
	}
	return out, nil
}

// logRequest logs the outgoing request. Headers are never logged: they carry the credential.
func (e *Executor) logRequest(ctx context.Context, method, url string, bodyLen int) {
	logEvent := e.logger.For(ctx).Debug().
		Str("direction", "outbound").
		Str("method", method).
		Str("url", url)

	if bodyLen > 0 {
		logEvent = logEvent.Int("body_bytes", bodyLen)
	}

	logEvent.Msg("API request")
}

// logResponse logs the incoming response
func (e *Executor) logResponse(ctx context.Context, resp *Response) {
	e.logger.For(ctx).Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Int("body_bytes", len(resp.Body)).
		Msg("API response")
}

func (e *Executor) logFailure(ctx context.Context, method, url string, err error) {
	e.logger.For(ctx).Warn().
		Err(err).
		Str("method", method).
		Str("url", url).
		Str("error_type", string(TypeOf(err))).
		Msg("API attempt failed")
}
