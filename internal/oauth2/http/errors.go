package http

import (
	"net/http"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

var oauth2Errors = map[string]*authsdk.OAuth2Error{
	authsdk.ErrorCodeInvalidRequest:          authsdk.ErrInvalidRequest,
	authsdk.ErrorCodeInvalidClient:           authsdk.ErrInvalidClient,
	authsdk.ErrorCodeInvalidGrant:            authsdk.ErrInvalidGrant,
	authsdk.ErrorCodeInvalidScope:            authsdk.ErrInvalidScope,
	authsdk.ErrorCodeUnauthorizedClient:      authsdk.ErrUnauthorizedClient,
	authsdk.ErrorCodeUnsupportedGrantType:    authsdk.ErrUnsupportedGrantType,
	authsdk.ErrorCodeUnsupportedResponseType: authsdk.ErrUnsupportedResponseType,
	authsdk.ErrorCodeAccessDenied:            authsdk.ErrAccessDenied,
}

// writeServiceError maps a service error onto its OAuth2 error body. Errors
// that are not OAuth2 sentinels are logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	oe, ok := oauth2Errors[service.Code(err)]
	if !ok {
		slogx.FromContext(r.Context()).Error(msg, "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if d := service.Description(err); d != "" {
		oe = oe.WithDescription(d)
	}
	oe.WriteError(w)
}
