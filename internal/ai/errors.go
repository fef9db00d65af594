package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindTimeout           Kind = "timeout"
	KindRateLimited       Kind = "rate-limited"
	KindUnavailable       Kind = "unavailable"
	KindMalformedResponse Kind = "malformed-response"
)

// Sentinel errors usable with errors.Is against any *ProviderError.
var (
	ErrTimeout           = errors.New("provider timeout")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrUnavailable       = errors.New("provider unavailable")
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError is returned by every adapter on failure.
type ProviderError struct {
	Kind     Kind
	Provider string
	Status   int // HTTP status, 0 when the request never completed
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	}
	return false
}

// Malformed reports a response with an unexpected shape.
func Malformed(provider string, format string, args ...any) *ProviderError {
	return &ProviderError{Kind: KindMalformedResponse, Provider: provider, Err: fmt.Errorf(format, args...)}
}

// Classify turns a transport error from http.Client.Do into a ProviderError.
func Classify(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	kind := KindUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// FromStatus maps a non-2xx HTTP response to a ProviderError.
func FromStatus(provider string, status int, body []byte) *ProviderError {
	kind := KindUnavailable
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = KindTimeout
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512] + "..."
	}
	return &ProviderError{Kind: kind, Provider: provider, Status: status, Err: errors.New(text)}
}

// KindOf returns the kind of a provider error, or "" if err is not one.
func KindOf(err error) Kind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
