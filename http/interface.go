package http

import (
	"context"
	nethttp "net/http"
	"time"
)

// Attempter performs exactly one HTTP attempt for an endpoint. token may be empty.
type Attempter interface {
	Execute(ctx context.Context, ep Endpoint, token string) (*Response, error)
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	RequestID  string
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// Config holds the executor configuration
type Config struct {
	BaseURL             string
	Timeout             time.Duration
	RequestInterceptors []RequestInterceptor
	DefaultHeaders      map[string]string
	RateLimit           float64 // requests per second, 0 disables
	RateBurst           int
}
