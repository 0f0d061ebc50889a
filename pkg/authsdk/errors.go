package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
)

// OAuth2 error codes (RFC 6749 sections 4.1.2.1 and 5.2, RFC 6750 section 3.1).
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidClient           = "invalid_client"
	ErrorCodeInvalidGrant            = "invalid_grant"
	ErrorCodeUnauthorizedClient      = "unauthorized_client"
	ErrorCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrorCodeUnsupportedResponseType = "unsupported_response_type"
	ErrorCodeInvalidScope            = "invalid_scope"
	ErrorCodeAccessDenied            = "access_denied"
	ErrorCodeServerError             = "server_error"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeInsufficientScope       = "insufficient_scope"
	ErrorCodeLoginRequired           = "login_required"
)

// OAuth2Error is the {error, error_description} body of the authorization
// and token endpoints. The server writes it; the SDK decodes it.
type OAuth2Error struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as a non-cacheable JSON response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

// WithDescription returns a copy of e carrying a more specific description.
func (e *OAuth2Error) WithDescription(description string) *OAuth2Error {
	cp := *e
	cp.Description = description
	return &cp
}

func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{StatusCode: statusCode, Code: code, Description: description}
}

// Client and grant failures are all 400; only unexpected faults are 500.
var (
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidClient = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidClient,
		Description: "client authentication failed",
	}

	ErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "the authorization grant is invalid, expired, or was issued to another client",
	}

	ErrUnauthorizedClient = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnauthorizedClient,
		Description: "the client is not authorized to request this scope",
	}

	ErrUnsupportedGrantType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	ErrUnsupportedResponseType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedResponseType,
		Description: "only response_type=code is supported",
	}

	ErrInvalidScope = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidScope,
		Description: "requested scope is invalid or unknown",
	}

	ErrAccessDenied = &OAuth2Error{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "User denied the request",
	}

	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrInvalidFormBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid request body",
	}

	ErrLoginRequired = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeLoginRequired,
		Description: "resource owner authentication required",
	}
)

// ResourceError is the {error, message} body of the resource API.
type ResourceError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes e, adding the RFC 6750 challenge header for 401/403.
func (e *ResourceError) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error=%q, error_description=%q`, e.Code, e.Message))
	}
	httpx.WriteJSON(w, e.StatusCode, e)
}

var (
	ErrInvalidToken = &ResourceError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidToken,
		Message:    "The access token is missing, invalid, expired or revoked",
	}

	ErrInsufficientScope = &ResourceError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeInsufficientScope,
		Message:    "No data available with granted permissions",
	}
)

// decodeError turns a non-2xx response body into the matching error type.
func decodeError(status int, body []byte) error {
	var probe struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Error == "" {
		return fmt.Errorf("authsdk: unexpected status %d", status)
	}
	if probe.Message != "" && probe.ErrorDescription == "" {
		return &ResourceError{StatusCode: status, Code: probe.Error, Message: probe.Message}
	}
	return &OAuth2Error{StatusCode: status, Code: probe.Error, Description: probe.ErrorDescription}
}
