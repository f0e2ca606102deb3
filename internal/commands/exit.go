package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/gaborage/ridekit/config"
	"github.com/gaborage/ridekit/http"
)

// Exit codes
const (
	ExitOK               = 0
	ExitGeneral          = 1
	ExitUsage            = 2
	ExitConfig           = 3
	ExitValidation       = 4
	ExitNotAuthenticated = 5
	ExitReloginRequired  = 6
	ExitNetwork          = 7
	ExitStatus           = 8
	ExitInterrupt        = 130
)

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *config.ConfigError
	switch {
	case errors.Is(err, context.Canceled), http.IsErrorType(err, http.CanceledError):
		return ExitInterrupt
	case errors.Is(err, http.ErrReloginRequired):
		return ExitReloginRequired
	case errors.Is(err, http.ErrNotAuthenticated):
		return ExitNotAuthenticated
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.Is(err, ErrInvalidValue), http.IsErrorType(err, http.ValidationError):
		return ExitValidation
	case http.IsErrorType(err, http.NetworkError):
		return ExitNetwork
	case http.IsErrorType(err, http.ClientStatusError),
		http.IsErrorType(err, http.ServerStatusError),
		http.IsErrorType(err, http.MalformedError):
		return ExitStatus
	case isUsageError(err):
		return ExitUsage
	default:
		return ExitGeneral
	}
}

// usageErrorPatterns are cobra argument and flag parsing messages; cobra exposes no
// typed errors for them.
var usageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"flag needs an argument",
	"invalid argument",
	"unknown command",
	"accepts ",
	"requires at least",
	"requires at most",
}

func isUsageError(err error) bool {
	msg := err.Error()
	for _, pattern := range usageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
