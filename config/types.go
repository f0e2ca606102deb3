package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Telemetry export targets
const (
	TelemetryStdout = "stdout"
	ProtocolHTTP    = "http"
	ProtocolGRPC    = "grpc"
)

// Token store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the client configuration. The embedded koanf instance keeps the merged
// key space available to callers that need keys outside these sections.
type Config struct {
	API       APIConfig       `koanf:"api" json:"api" yaml:"api"`
	Token     TokenConfig     `koanf:"token" json:"token" yaml:"token"`
	Callback  CallbackConfig  `koanf:"callback" json:"callback" yaml:"callback"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry" json:"telemetry" yaml:"telemetry"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL   string          `koanf:"baseurl" json:"baseurl" yaml:"baseurl" validate:"required"`
	Timeout   time.Duration   `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
	Retry     RetryConfig     `koanf:"retry" json:"retry" yaml:"retry"`
	RateLimit RateLimitConfig `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
}

// RetryConfig bounds the retry coordinator. BaseDelay is the linear backoff unit.
type RetryConfig struct {
	MaxAttempts int           `koanf:"maxattempts" json:"maxattempts" yaml:"maxattempts" validate:"gte=1,lte=10"`
	BaseDelay   time.Duration `koanf:"basedelay" json:"basedelay" yaml:"basedelay" validate:"gt=0"`
}

// RateLimitConfig throttles outbound attempts. RPS 0 disables throttling.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" json:"rps" yaml:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" validate:"gte=1"`
}

// TokenConfig selects where the credential lives.
type TokenConfig struct {
	Key     string      `koanf:"key" json:"key" yaml:"key" validate:"required"`
	Value   string      `koanf:"value" json:"-" yaml:"value"` // seeds the memory backend
	Backend string      `koanf:"backend" json:"backend" yaml:"backend" validate:"oneof=memory redis"`
	Redis   RedisConfig `koanf:"redis" json:"redis" yaml:"redis"`
}

// RedisConfig configures the Redis token backend.
type RedisConfig struct {
	URL      string        `koanf:"url" json:"url" yaml:"url"`
	Password string        `koanf:"password" json:"-" yaml:"password"`
	Prefix   string        `koanf:"prefix" json:"prefix" yaml:"prefix"`
	TTL      time.Duration `koanf:"ttl" json:"ttl" yaml:"ttl" validate:"gte=0"`
}

// CallbackConfig configures the local login redirect receiver.
type CallbackConfig struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr" validate:"required,hostname_port"`
	Path string `koanf:"path" json:"path" yaml:"path" validate:"required,startswith=/"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// TelemetryConfig controls OpenTelemetry export. Endpoint is "stdout" or an OTLP
// collector host:port.
type TelemetryConfig struct {
	Enabled     bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	ServiceName string        `koanf:"servicename" json:"servicename" yaml:"servicename" validate:"required_if=Enabled true"`
	Endpoint    string        `koanf:"endpoint" json:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`
	Protocol    string        `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"oneof=http grpc"`
	Insecure    bool          `koanf:"insecure" json:"insecure" yaml:"insecure"`
	SampleRate  float64       `koanf:"samplerate" json:"samplerate" yaml:"samplerate" validate:"gte=0,lte=1"`
	Timeout     time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"gt=0"`
}
