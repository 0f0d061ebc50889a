package service

import (
	"errors"
	"fmt"
)

// OAuth2 error codes. The HTTP layer maps them with errors.Is.
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrAccessDenied            = errors.New("access_denied")
	ErrInvalidToken            = errors.New("invalid_token")
	ErrInsufficientScope       = errors.New("insufficient_scope")
)

var (
	ErrLoginFailed    = errors.New("login failed")
	ErrClientNotFound = errors.New("client not found")

	// ErrIdentityUnavailable accompanies ErrLoginFailed when the bridge
	// could not be reached, as opposed to rejecting the credentials.
	ErrIdentityUnavailable = errors.New("identity bridge unavailable")
)

// describedError carries a client facing description alongside a sentinel.
type describedError struct {
	err  error
	desc string
}

func (e *describedError) Error() string { return e.err.Error() + ": " + e.desc }
func (e *describedError) Unwrap() error { return e.err }

func describe(err error, format string, args ...any) error {
	return &describedError{err: err, desc: fmt.Sprintf(format, args...)}
}

// Description returns the client facing text attached to err, if any.
func Description(err error) string {
	var d *describedError
	if errors.As(err, &d) {
		return d.desc
	}
	return ""
}

var oauth2Errors = []error{
	ErrInvalidRequest,
	ErrInvalidClient,
	ErrInvalidGrant,
	ErrInvalidScope,
	ErrUnauthorizedClient,
	ErrUnsupportedResponseType,
	ErrUnsupportedGrantType,
	ErrAccessDenied,
	ErrInvalidToken,
	ErrInsufficientScope,
}

// Code is the OAuth2 error code for err, server_error when it is not one of
// the sentinels above.
func Code(err error) string {
	for _, sentinel := range oauth2Errors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "server_error"
}
