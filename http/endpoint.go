package http

import (
	"errors"
	nethttp "net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Endpoint describes one logical backend call.
type Endpoint struct {
	Path    string            `validate:"required"`
	Method  string            `validate:"omitempty,oneof=GET POST PATCH PUT DELETE"`
	Payload any               `validate:"-"` // JSON-encoded when non-nil, never validated here
	Headers map[string]string `validate:"-"` // per-call headers, applied after defaults
}

var (
	endpointValidator     *validator.Validate
	endpointValidatorOnce sync.Once
)

func validate() *validator.Validate {
	endpointValidatorOnce.Do(func() {
		endpointValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return endpointValidator
}

// MethodOrDefault returns the upper-cased method, GET when unset.
func (e Endpoint) MethodOrDefault() string {
	if e.Method == "" {
		return nethttp.MethodGet
	}
	return strings.ToUpper(e.Method)
}

// Validate checks the endpoint before any network activity.
func (e Endpoint) Validate() error {
	normalized := e
	normalized.Method = strings.ToUpper(e.Method)
	normalized.Path = strings.TrimSpace(e.Path)

	if err := validate().Struct(normalized); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			switch fe.Field() {
			case "Path":
				return NewValidationError("path cannot be empty", err)
			case "Method":
				return NewValidationError("unsupported method "+e.Method, err)
			}
		}
		return NewValidationError("invalid endpoint", err)
	}
	return nil
}

// JoinURL joins base and path with exactly one separator between them.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
