package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field rules. The first failure is returned
// as a *ConfigError naming the dotted key and the environment variable that sets it.
func Validate(cfg *Config) error {
	if err := configValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return err
	}

	if cfg.Token.Backend == BackendRedis && strings.TrimSpace(cfg.Token.Redis.URL) == "" {
		return NewMissingFieldError("token.redis.url", envName("token.redis.url"), "token.redis.url")
	}
	if t := cfg.Telemetry; t.Enabled && t.Endpoint != TelemetryStdout {
		if _, _, err := net.SplitHostPort(t.Endpoint); err != nil {
			return NewInvalidFieldError("telemetry.endpoint",
				fmt.Sprintf("must be %q or a collector host:port", TelemetryStdout),
				[]string{TelemetryStdout, "localhost:4318"})
		}
	}
	return nil
}

// fieldError maps Config.API.Retry.MaxAttempts to api.retry.maxattempts.
func fieldError(fe validator.FieldError) *ConfigError {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	key := strings.ToLower(strings.Join(parts, "."))

	switch fe.Tag() {
	case "required", "required_if":
		return NewMissingFieldError(key, envName(key), key)
	case "oneof":
		return NewInvalidFieldError(key, fmt.Sprintf("unsupported value %v", fe.Value()), strings.Fields(fe.Param()))
	default:
		return NewValidationError(key, fmt.Sprintf("value %v fails %s=%s", fe.Value(), fe.Tag(), fe.Param()))
	}
}

func envName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
