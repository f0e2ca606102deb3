package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is the optional YAML file read from the working directory
	DefaultFile = "ridekit.yaml"

	// EnvPrefix prefixes every environment override, e.g. RIDEKIT_API_BASEURL
	EnvPrefix = "RIDEKIT_"
)

// Options controls where Load reads from.
type Options struct {
	// File overrides DefaultFile. A missing file is not an error.
	File string
	// Environ replaces os.Environ, mainly for tests.
	Environ func() []string
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration file
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadWithOptions(Options{})
}

// LoadWithOptions is Load with an explicit file path and environment source.
func LoadWithOptions(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := opts.File
	if path == "" {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadFromMap builds a configuration from defaults overlaid with values, keyed by
// dotted path ("api.baseurl"). Intended for tests.
func LoadFromMap(values map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(values, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load values: %w", err)
	}
	return finish(k)
}

// LoadFromBytes builds a configuration from defaults overlaid with a YAML document.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts RIDEKIT_API_RETRY_MAXATTEMPTS to api.retry.maxattempts.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"api.baseurl":           "https://api.example.com",
		"api.timeout":           "15s",
		"api.retry.maxattempts": 3,
		"api.retry.basedelay":   "1s",
		"api.ratelimit.rps":     0,
		"api.ratelimit.burst":   1,

		"token.key":          "accessToken",
		"token.value":        "",
		"token.backend":      BackendMemory,
		"token.redis.url":    "",
		"token.redis.prefix": "ridekit:",
		"token.redis.ttl":    "0s",

		"callback.addr": "127.0.0.1:8765",
		"callback.path": "/auth/callback",

		"log.level":  "info",
		"log.pretty": false,

		"telemetry.enabled":     false,
		"telemetry.servicename": "ridekit",
		"telemetry.endpoint":    TelemetryStdout,
		"telemetry.protocol":    ProtocolHTTP,
		"telemetry.insecure":    false,
		"telemetry.samplerate":  1.0,
		"telemetry.timeout":     "5s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Exists reports whether key is set in any source.
func (c *Config) Exists(key string) bool {
	return c.k != nil && c.k.Exists(key)
}

// GetString returns the string at key, or defaultVal when unset.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if c.Exists(key) {
		return c.k.String(key)
	}
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return ""
}
