package http

import (
	"net/http"
	"strings"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
)

// TokenHandler serves POST /oauth2/token
// Accepts application/x-www-form-urlencoded per RFC 6749 and, like the
// original service, a flat JSON object.
type TokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		OAuth2 Token Endpoint
//	@Description	Issues an opaque access token and refresh token (authorization_code, refresh_token).
//	@Description	Refresh tokens rotate: each one can be used once.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			grant_type		formData	string					true	"Grant type"	Enums(authorization_code, refresh_token)
//	@Param			code			formData	string					false	"Authorization code (required for authorization_code grant)"
//	@Param			redirect_uri	formData	string					false	"Redirect URI (required for authorization_code grant)"
//	@Param			code_verifier	formData	string					false	"PKCE code_verifier (required when PKCE was used)"
//	@Param			refresh_token	formData	string					false	"Refresh token (required for refresh_token grant)"
//	@Param			client_id		formData	string					true	"Client identifier"
//	@Param			client_secret	formData	string					false	"Client secret (required for confidential clients)"
//	@Success		200				{object}	authsdk.TokenResponse	"access_token, refresh_token, token_type, expires_in, scope"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		405				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Header			200				{string}	Cache-Control			"no-store"
//	@Header			200				{string}	Pragma					"no-cache"
//	@Router			/oauth2/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		authsdk.NewOAuth2Error(http.StatusMethodNotAllowed, authsdk.ErrorCodeInvalidRequest, "Use POST").WriteError(w)
		return
	}

	params, err := httpx.ParseParams(r)
	if err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	pair, err := h.TokenService.Exchange(r.Context(), service.TokenRequest{
		GrantType:    service.GrantType(params.Get("grant_type")),
		ClientID:     params.Get("client_id"),
		ClientSecret: params.Get("client_secret"),
		Code:         params.Get("code"),
		RedirectURI:  params.Get("redirect_uri"),
		CodeVerifier: params.Get("code_verifier"),
		RefreshToken: params.Get("refresh_token"),
	})
	if err != nil {
		writeServiceError(w, r, err, "token grant failed")
		return
	}

	response := authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        strings.TrimSpace(pair.Scope),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
