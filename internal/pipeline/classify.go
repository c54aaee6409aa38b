package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"

	"github.com/dgallion1/draftlens/internal/llm"
)

// Failure is the user-facing class of a failed service call.
type Failure int

const (
	FailureGeneric Failure = iota
	FailureTimeout
	FailureConnection
)

func (f Failure) String() string {
	switch f {
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection"
	}
	return "generic"
}

// Classify sorts err into a failure class.
func Classify(err error) Failure {
	if err == nil {
		return FailureGeneric
	}
	var te *TimeoutError
	if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var re *llm.RetryableError
	if errors.As(err, &re) {
		switch re.StatusCode {
		case http.StatusGatewayTimeout:
			return FailureTimeout
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			return FailureConnection
		}
		return FailureGeneric
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	var oe *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &oe) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return FailureConnection
	}
	return FailureGeneric
}

// Message returns the text shown to the user when subject (for example
// "anchor generation") fails.
func Message(subject string, err error) string {
	switch Classify(err) {
	case FailureTimeout:
		return "Timeout: " + subject + " is taking too long. Please check your network connection and try again."
	case FailureConnection:
		return "Network error: Unable to connect to the " + subject + " service. Please check your connection and try again."
	}
	return "Request failed: " + subject + ". Please try again."
}
