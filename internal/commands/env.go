// Package commands implements the ridekit command line.
package commands

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"os"
	"time"

	"github.com/gaborage/ridekit/config"
	"github.com/gaborage/ridekit/http"
	"github.com/gaborage/ridekit/logger"
	"github.com/gaborage/ridekit/retry"
	"github.com/gaborage/ridekit/session"
	"github.com/gaborage/ridekit/telemetry"
	"github.com/gaborage/ridekit/tokenstore"
)

// Env carries the injectable dependencies shared by every command.
type Env struct {
	Out io.Writer
	Err io.Writer

	// LoadConfig loads configuration for the given file path.
	LoadConfig func(path string) (*config.Config, error)
	// Store replaces the configured token backend when set.
	Store tokenstore.Store
	// HTTPClient replaces the executor's default client when set.
	HTTPClient *nethttp.Client
	// Sleeper replaces the timer-backed retry sleeper when set.
	Sleeper retry.Sleeper
	// Now is the clock used for token expiry checks.
	Now func() time.Time
	// Version is reported as the telemetry service version.
	Version string
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Env {
	return &Env{
		Out: os.Stdout,
		Err: os.Stderr,
		LoadConfig: func(path string) (*config.Config, error) {
			return config.LoadWithOptions(config.Options{File: path})
		},
		Now: time.Now,
	}
}

// globalOptions are the root persistent flags.
type globalOptions struct {
	ConfigFile string
	LogLevel   string
}

// deps is the per-invocation object graph.
type deps struct {
	cfg       *config.Config
	log       logger.Logger
	store     tokenstore.Store
	accessor  *tokenstore.Accessor
	telemetry telemetry.Provider
	closer    func() error
}

func (env *Env) now() time.Time {
	if env.Now == nil {
		return time.Now()
	}
	return env.Now()
}

// setup loads configuration and connects the token store.
func (env *Env) setup(ctx context.Context, opts *globalOptions) (*deps, error) {
	cfg, err := env.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	var logOpts []logger.Option
	if cfg.Log.Pretty {
		logOpts = append(logOpts, logger.WithPretty())
	}
	log := logger.New(env.Err, level, logOpts...)

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: env.Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Protocol:       cfg.Telemetry.Protocol,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		Timeout:        cfg.Telemetry.Timeout,
		Writer:         env.Err,
	})
	if err != nil {
		return nil, config.NewConnectionError("telemetry", err.Error(), []string{
			"check RIDEKIT_TELEMETRY_ENDPOINT and RIDEKIT_TELEMETRY_PROTOCOL",
		})
	}
	shutdownTelemetry := func() error {
		if err := telemetry.Shutdown(tel, cfg.Telemetry.Timeout); err != nil {
			log.Warn().Err(err).Msg("Telemetry export incomplete")
		}
		return nil
	}

	rt := &deps{cfg: cfg, log: log, telemetry: tel, closer: shutdownTelemetry}

	switch {
	case env.Store != nil:
		rt.store = env.Store
	case cfg.Token.Backend == config.BackendRedis:
		rs, err := tokenstore.NewRedisStore(ctx, tokenstore.RedisConfig{
			URL:      cfg.Token.Redis.URL,
			Password: cfg.Token.Redis.Password,
			Prefix:   cfg.Token.Redis.Prefix,
			TTL:      cfg.Token.Redis.TTL,
		})
		if err != nil {
			_ = shutdownTelemetry()
			return nil, config.NewConnectionError("token.redis", err.Error(), []string{
				"check RIDEKIT_TOKEN_REDIS_URL",
				"check that the redis server is reachable",
			})
		}
		rt.store = rs
		rt.closer = func() error {
			return errors.Join(rs.Close(), shutdownTelemetry())
		}
	default:
		seed := map[string]string{}
		if cfg.Token.Value != "" {
			seed[cfg.Token.Key] = cfg.Token.Value
		}
		rt.store = tokenstore.NewMemoryStoreWith(seed)
	}

	rt.accessor = tokenstore.NewAccessor(rt.store, log, tokenstore.WithKey(cfg.Token.Key))
	return rt, nil
}

// gate builds the session gate from configuration.
func (env *Env) gate(rt *deps, opts ...session.GateOption) (*session.Gate, error) {
	api := rt.cfg.API

	builder := http.NewBuilder(rt.log, api.BaseURL).
		WithTimeout(api.Timeout).
		WithRateLimit(api.RateLimit.RPS, api.RateLimit.Burst).
		WithTracerProvider(rt.telemetry.TracerProvider()).
		WithMeterProvider(rt.telemetry.MeterProvider())
	if env.HTTPClient != nil {
		builder = builder.WithHTTPClient(env.HTTPClient)
	}

	var retryOpts []retry.Option
	if env.Sleeper != nil {
		retryOpts = append(retryOpts, retry.WithSleeper(env.Sleeper))
	}
	coord := retry.NewCoordinator(retry.Policy{
		MaxAttempts: api.Retry.MaxAttempts,
		BaseDelay:   api.Retry.BaseDelay,
	}, rt.log, retryOpts...)

	return session.NewGate(rt.accessor, builder.Build(), coord, rt.log, opts...)
}
