package http

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// Cause tags the transport signature behind a failed attempt.
type Cause string

const (
	CauseNone        Cause = ""
	CauseTimeout     Cause = "timeout"
	CauseConnRefused Cause = "connection_refused"
	CauseConnReset   Cause = "connection_reset"
	CauseDNS         Cause = "dns"
	CauseEOF         Cause = "eof"
	CauseMessage     Cause = "network_message"
	CauseNoResponse  Cause = "no_response"
	CauseCanceled    Cause = "canceled"
)

// networkMessages are lowercase fragments that some transports use instead of typed errors.
var networkMessages = []string{
	"network error",
	"network request failed",
}

// TransportOutcome is the uniform view of one attempt, independent of the transport
// that produced it. HasResponse is false whenever no HTTP status line was received.
type TransportOutcome struct {
	HasResponse bool
	StatusCode  int
	Cause       Cause
	Err         error
}

// Timeout reports whether the attempt was abandoned after its deadline.
func (o TransportOutcome) Timeout() bool {
	return o.Cause == CauseTimeout
}

// ResponseOutcome builds the outcome for an attempt that received a status line.
func ResponseOutcome(statusCode int) TransportOutcome {
	return TransportOutcome{HasResponse: true, StatusCode: statusCode}
}

// NormalizeTransportError turns an error raised while sending a request into a
// TransportOutcome. callerCtx is the context owned by the caller, not the per-attempt
// context: when it is done the outcome is a cancellation rather than a network failure.
func NormalizeTransportError(callerCtx context.Context, err error) TransportOutcome {
	out := TransportOutcome{Err: err}
	if callerCtx != nil && callerCtx.Err() != nil {
		out.Cause = CauseCanceled
		return out
	}
	out.Cause = detectCause(err)
	return out
}

func detectCause(err error) Cause {
	if err == nil {
		return CauseNoResponse
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return CauseTimeout
		}
		return CauseDNS
	case errors.As(err, &netErr) && netErr.Timeout():
		return CauseTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return CauseConnRefused
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return CauseConnReset
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return CauseEOF
	case hasNetworkMessage(err):
		return CauseMessage
	default:
		return CauseNoResponse
	}
}

func hasNetworkMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, fragment := range networkMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// Classify maps a transport outcome to an ErrorType. Absence of a response is always
// a network error whatever signature produced it. Success statuses return "".
func Classify(o TransportOutcome) ErrorType {
	if o.Cause == CauseCanceled {
		return CanceledError
	}
	if !o.HasResponse {
		return NetworkError
	}
	return ClassifyStatus(o.StatusCode)
}

// ClassifyStatus maps an HTTP status code to an ErrorType.
func ClassifyStatus(statusCode int) ErrorType {
	switch {
	case IsSuccessStatus(statusCode):
		return ""
	case statusCode == 401 || statusCode == 403:
		return AuthInvalidError
	case statusCode >= 400 && statusCode < 500:
		return ClientStatusError
	default:
		// 5xx, plus 1xx/3xx that escaped the transport
		return ServerStatusError
	}
}
