// Package upstream classifies failures of the external services the invite
// flow depends on (token endpoint, carrier registry, packet service) into a
// small normalized taxonomy.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Category is the normalized failure class of an upstream call.
type Category string

const (
	CategoryTimeout          Category = "timeout"
	CategoryBadData          Category = "bad_data"
	CategoryAuthentication   Category = "authentication"
	CategoryOutage           Category = "provider_outage"
	CategoryContractMismatch Category = "contract_mismatch"
	CategoryNotFound         Category = "not_found"
	CategoryRateLimited      Category = "rate_limited"
	CategoryCircuitOpen      Category = "circuit_open"
	CategoryInternal         Category = "internal"
)

// Error wraps an upstream failure with its category and the service that
// produced it.
type Error struct {
	Category   Category
	Service    string
	Message    string
	StatusCode int
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Service, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Service, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Transient reports whether the failure is the kind a later attempt may not
// hit. The core never retries on its own; callers use this to decide whether
// to schedule the whole operation again.
func (e *Error) Transient() bool {
	switch e.Category {
	case CategoryTimeout, CategoryOutage, CategoryRateLimited, CategoryCircuitOpen:
		return true
	default:
		return false
	}
}

// New creates a categorized upstream error.
func New(category Category, service, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Service:    service,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf extracts the category from err, defaulting to CategoryInternal.
func CategoryOf(err error) Category {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return CategoryInternal
}

// IsTransient reports whether err is a transient upstream failure.
func IsTransient(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	return false
}

// FromTransport classifies an error returned by an HTTP client's Do.
func FromTransport(ctx context.Context, service string, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return New(CategoryTimeout, service, "request timeout", err)
	}
	return New(CategoryOutage, service, "failed to execute request", err)
}

// FromStatus classifies a non-success HTTP status. It returns nil for 2xx.
func FromStatus(service string, status int) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	var e *Error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e = New(CategoryAuthentication, service, "authentication failed", nil)
	case http.StatusNotFound:
		e = New(CategoryNotFound, service, "record not found", nil)
	case http.StatusTooManyRequests:
		e = New(CategoryRateLimited, service, "rate limit exceeded", nil)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e = New(CategoryBadData, service, "request rejected", nil)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e = New(CategoryOutage, service, "service unavailable", nil)
	default:
		e = New(CategoryInternal, service, fmt.Sprintf("unexpected status code: %d", status), nil)
	}
	e.StatusCode = status
	return e
}
