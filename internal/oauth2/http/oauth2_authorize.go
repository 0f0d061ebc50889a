package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/pesuauth/pesu-oauth2/pkg/sessionx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// AuthorizeHandler processes OAuth2 authorization requests (authorization code flow).
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	UserService      *service.UserService
	Sessions         *sessionx.Manager
	LoginURL         string
}

// HandleGet processes GET requests to the authorization endpoint.
//
//	@Summary		OAuth2 authorization endpoint (GET)
//	@Description	Starts the authorization code flow.
//	@Description
//	@Description	The request is validated first. Problems with client_id or redirect_uri are answered with a JSON 400;
//	@Description	anything found after the redirect_uri is trusted is sent back to it as error and state parameters.
//	@Description
//	@Description	Without an owner session the user agent is redirected to the login page with next set to this URL.
//	@Description	With one, a single use consent ticket and the per scope field list are returned for the consent screen.
//	@Description
//	@Description	**PKCE:** public clients MUST send code_challenge. Only S256 is accepted; it is the default method.
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string					true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string					true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string					true	"Callback URI (exact match with a registered URI)"
//	@Param			scope					query		string					true	"Space-delimited list of scopes"	example("profile:basic profile:contact")
//	@Param			state					query		string					false	"Opaque value for CSRF protection (recommended)"
//	@Param			code_challenge			query		string					false	"PKCE code challenge (required for public clients)"	example("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM")
//	@Param			code_challenge_method	query		string					false	"PKCE method"	default(S256)	Enums(S256)
//	@Success		200						{object}	authsdk.ConsentPrompt	"Consent prompt"
//	@Success		302						{string}	string					"Redirect to login or to redirect_uri with an error"
//	@Failure		400						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/oauth2/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	q := r.URL.Query()

	validated, err := h.AuthorizeService.Validate(ctx, service.AuthorizeRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               q.Get("scope"),
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	})
	if err != nil {
		h.writeAuthorizeError(w, r, err)
		return
	}

	userID, err := h.sessionUser(w, r)
	if err != nil {
		log.Error("failed to load session user", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if userID == "" {
		http.Redirect(w, r, loginRedirect(h.LoginURL, r.URL.RequestURI()), http.StatusFound)
		return
	}

	prompt, err := h.AuthorizeService.BeginConsent(ctx, userID, validated)
	if err != nil {
		log.Error("failed to start consent", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, prompt)
}

// HandlePost processes the owner's consent decision.
//
//	@Summary		OAuth2 authorization endpoint (POST)
//	@Description	Records the owner's consent decision for a ticket from GET /oauth2/authorize.
//	@Description	The presence of confirm approves; granted_fields entries are "<scope>:<field>".
//	@Description	Both outcomes redirect to the client: with code and state, or with error=access_denied.
//	@Tags			OAuth2
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			consent_ticket	formData	string					true	"Ticket from the consent prompt"
//	@Param			confirm			formData	string					false	"Present to approve"
//	@Param			granted_fields	formData	[]string				false	"Approved fields"	collectionFormat(multi)
//	@Success		302				{string}	string					"Redirect to redirect_uri"
//	@Failure		400				{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401				{object}	authsdk.ErrorResponse	"login_required"
//	@Router			/oauth2/authorize [post]
func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	userID, err := h.sessionUser(w, r)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load session user", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if userID == "" {
		authsdk.ErrLoginRequired.WriteError(w)
		return
	}

	_, approve := r.PostForm["confirm"]
	decision, err := h.AuthorizeService.Decide(ctx, userID,
		r.PostForm.Get("consent_ticket"),
		approve,
		r.PostForm["granted_fields"],
	)
	if err != nil {
		writeServiceError(w, r, err, "consent decision failed")
		return
	}

	http.Redirect(w, r, decision.Location, http.StatusFound)
}

// sessionUser resolves the owner of the session cookie, "" when there is
// none. A session naming a user that no longer exists is cleared.
func (h *AuthorizeHandler) sessionUser(w http.ResponseWriter, r *http.Request) (string, error) {
	userID, err := h.Sessions.UserID(r)
	if err != nil {
		return "", nil
	}

	_, err = h.UserService.Get(r.Context(), userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.Sessions.Clear(w)
		return "", nil
	case err != nil:
		return "", err
	}
	return userID, nil
}

func (h *AuthorizeHandler) writeAuthorizeError(w http.ResponseWriter, r *http.Request, err error) {
	var redirect *service.RedirectError
	if errors.As(err, &redirect) && service.Code(err) != authsdk.ErrorCodeServerError {
		http.Redirect(w, r, redirect.Location(), http.StatusFound)
		return
	}
	writeServiceError(w, r, err, "authorize request failed")
}

// loginRedirect appends next to loginURL, keeping any query it already has.
func loginRedirect(loginURL, next string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		u = &url.URL{Path: DefaultLoginURL}
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}
