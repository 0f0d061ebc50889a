package http

import (
	"net/http"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// UserResourceHandler serves GET /api/v1/user, the protected profile.
type UserResourceHandler struct {
	ResourceService *service.ResourceService
}

// ServeHTTP godoc
//
//	@Summary		Consented profile
//	@Description	Returns only the profile fields the owner granted to the token's client, for the token's scopes.
//	@Tags			Resource
//	@Produce		json
//	@Security		BearerAuth
//	@Param			Authorization	header		string							true	"Bearer access token"
//	@Success		200				{object}	map[string]interface{}			"Granted profile fields"
//	@Failure		401				{object}	authsdk.ResourceErrorResponse	"invalid_token"
//	@Failure		403				{object}	authsdk.ResourceErrorResponse	"insufficient_scope"
//	@Failure		500				{object}	authsdk.ResourceErrorResponse	"server_error"
//	@Router			/api/v1/user [get]
func (h *UserResourceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		(&authsdk.ResourceError{
			StatusCode: http.StatusMethodNotAllowed,
			Code:       authsdk.ErrorCodeInvalidRequest,
			Message:    "Use GET",
		}).WriteError(w)
		return
	}

	ctx := r.Context()
	data, err := h.ResourceService.UserInfo(ctx, httpx.ExtractBearerToken(r))
	if err != nil {
		var base *authsdk.ResourceError
		switch service.Code(err) {
		case authsdk.ErrorCodeInvalidToken:
			base = authsdk.ErrInvalidToken
		case authsdk.ErrorCodeInsufficientScope:
			base = authsdk.ErrInsufficientScope
		default:
			slogx.FromContext(ctx).Error("resource request failed", "error", err)
			(&authsdk.ResourceError{
				StatusCode: http.StatusInternalServerError,
				Code:       authsdk.ErrorCodeServerError,
				Message:    "internal server error",
			}).WriteError(w)
			return
		}

		re := *base
		if d := service.Description(err); d != "" {
			re.Message = d
		}
		re.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, data)
}
