package domainerrors

import "errors"

// Code represents a failure category independent of transport.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal_error"
	CodeTimeout      Code = "timeout"

	// CodeCredentialUnavailable means no usable access credential could be
	// produced: the refresh call failed or the store could not be used.
	// Callers recover by retrying the whole operation later.
	CodeCredentialUnavailable Code = "credential_unavailable"

	// CodeLookupFailure means the carrier registry was unreachable or had no
	// record for the requested DOT number.
	CodeLookupFailure Code = "lookup_failure"

	// CodeInviteFailure means the invitation request was rejected or could
	// not be delivered.
	CodeInviteFailure Code = "invite_failure"
)

// Error wraps domain or infrastructure failures with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so errors.Is(err, New(CodeX, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a domain error wrapping err.
// If err is already a domain error, its code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the outermost domain code in err's chain, or "" when the
// chain holds no domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
