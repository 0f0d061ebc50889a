package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/pesuauth/pesu-oauth2/pkg/sessionx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// SessionHandler signs resource owners in and out.
type SessionHandler struct {
	UserService *service.UserService
	Sessions    *sessionx.Manager
}

// HandleLogin handles POST /login
//
//	@Summary		Owner login
//	@Description	Checks PESU Academy credentials through the identity bridge and sets the session cookie.
//	@Description	With a local next path the user agent is redirected there (back to /oauth2/authorize); otherwise the owner is returned as JSON.
//	@Tags			Session
//	@Accept			application/x-www-form-urlencoded
//	@Accept			json
//	@Produce		json
//	@Param			username	formData	string					true	"SRN or PRN"
//	@Param			password	formData	string					true	"Password"
//	@Param			next		formData	string					false	"Local path to continue to"
//	@Success		200			{object}	authsdk.LoginResponse	"Signed in"
//	@Success		303			{string}	string					"Redirect to next"
//	@Failure		401			{object}	authsdk.ErrorResponse	"access_denied"
//	@Failure		503			{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/login [post]
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	params, err := httpx.ParseParams(r)
	if err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	user, err := h.UserService.Login(ctx, params.Get("username"), params.Get("password"))
	switch {
	case errors.Is(err, service.ErrIdentityUnavailable):
		authsdk.NewOAuth2Error(http.StatusServiceUnavailable, "temporarily_unavailable", service.Description(err)).WriteError(w)
		return
	case errors.Is(err, service.ErrLoginFailed):
		slogx.SecurityEvent(ctx, "login_failed")
		authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied, service.Description(err)).WriteError(w)
		return
	case err != nil:
		log.Error("login failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if err := h.Sessions.Issue(w, user.ID); err != nil {
		log.Error("failed to issue session", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if next := params.Get("next"); isSafeNext(next) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		UserID:  user.ID,
		PESUPRN: user.PESUPRN,
	})
}

// HandleLogout handles POST /logout
//
//	@Summary	Owner logout
//	@Tags		Session
//	@Success	204
//	@Router		/logout [post]
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// isSafeNext accepts local absolute paths only, so login cannot be used as
// an open redirect.
func isSafeNext(next string) bool {
	if !strings.HasPrefix(next, "/") {
		return false
	}
	return !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, `/\`)
}
