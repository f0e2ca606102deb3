// Package callback receives the identity provider's login redirect on a local
// listener and persists the access token it carries.
package callback

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/tokenstore"
)

const (
	// TokenParam is the query or form field that carries the token
	TokenParam = "access_token"

	// ServiceName names the receiver's server spans
	ServiceName = "ridekit-callback"

	defaultPath      = "/auth/callback"
	shutdownTimeout  = 5 * time.Second
	readWriteTimeout = 10 * time.Second
)

// TokenSetter persists a received credential.
type TokenSetter interface {
	Set(value string)
}

// Config configures a Receiver.
type Config struct {
	Addr string
	Path string
	// Now is the clock used to reject expired tokens; time.Now when nil.
	Now func() time.Time
	// TracerProvider records server spans; the global provider when nil.
	TracerProvider trace.TracerProvider
}

// Receiver is a one-shot echo server for the login redirect.
type Receiver struct {
	echo     *echo.Echo
	cfg      Config
	setter   TokenSetter
	logger   logger.Logger
	received chan struct{}
	once     sync.Once
}

// New creates a receiver. Routes are registered immediately so Handler can be
// served by a test server without calling Run.
func New(cfg Config, setter TokenSetter, log logger.Logger) *Receiver {
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		cfg.Path = "/" + cfg.Path
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	r := &Receiver{
		echo:     e,
		cfg:      cfg,
		setter:   setter,
		logger:   log,
		received: make(chan struct{}),
	}

	e.Use(requestLogger(log))
	// Span attributes include the URL, so redirects carrying the token in the
	// query are not traced.
	e.Use(otelecho.Middleware(ServiceName,
		otelecho.WithTracerProvider(cfg.TracerProvider),
		otelecho.WithSkipper(tokenInQuery),
	))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(_ echo.Context, err error, _ []byte) error {
			log.Error().Err(err).Msg("Panic recovered")
			return err
		},
	}))
	e.Use(middleware.BodyLimit("64K"))

	e.GET(cfg.Path, r.handleCallback)
	e.POST(cfg.Path, r.handleCallback)
	e.GET("/health", healthCheck)

	return r
}

func tokenInQuery(c echo.Context) bool {
	return c.Request().URL.Query().Has(TokenParam)
}

// Handler exposes the routes for embedding or testing.
func (r *Receiver) Handler() http.Handler {
	return r.echo
}

// Received is closed once a valid token has been handed to the setter.
func (r *Receiver) Received() <-chan struct{} {
	return r.received
}

// Run serves until a token arrives or ctx is done, then shuts down. It returns
// ctx.Err() when no token arrived.
func (r *Receiver) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return fmt.Errorf("callback listener on %s: %w", r.cfg.Addr, err)
	}
	r.echo.Listener = ln
	server := &http.Server{
		ReadTimeout:  readWriteTimeout,
		WriteTimeout: readWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info().
			Str("address", ln.Addr().String()).
			Str("path", r.cfg.Path).
			Msg("Waiting for login redirect")
		if err := r.echo.StartServer(server); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-r.received:
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn().Err(err).Msg("Callback server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	select {
	case <-r.received:
		return nil
	default:
		return ctx.Err()
	}
}

type callbackResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r *Receiver) handleCallback(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam(TokenParam))
	if token == "" {
		token = strings.TrimSpace(c.FormValue(TokenParam))
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, TokenParam+" is missing")
	}

	if v := tokenstore.ValidateToken(token, r.cfg.Now()); !v.Valid {
		r.logger.Warn().Str("reason", v.Diagnostic).Msg("Rejected login redirect")
		return echo.NewHTTPError(http.StatusBadRequest, v.Diagnostic)
	}

	r.setter.Set(token)
	r.once.Do(func() { close(r.received) })
	r.logger.Info().Msg("Credential received from login redirect")

	return c.JSON(http.StatusOK, callbackResponse{Status: "ok"})
}

func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, callbackResponse{Status: "ok"})
}

// errorHandler renders every failure as {"error": message}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if goerrors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, callbackResponse{Error: msg})
}

// requestLogger logs each request without its query string, which carries the token.
func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			event := log.Info()
			if status >= http.StatusBadRequest {
				event = log.Warn()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("Callback request")
			return nil
		}
	}
}
