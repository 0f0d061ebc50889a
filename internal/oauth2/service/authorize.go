package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
	"github.com/pesuauth/pesu-oauth2/pkg/idx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

const (
	DefaultCodeTTL    = 10 * time.Minute
	DefaultConsentTTL = 10 * time.Minute
)

// AuthorizeService drives an authorization request from validation through
// the owner's consent decision to an issued code.
type AuthorizeService struct {
	Store      store.Store
	Clients    *ClientService
	Catalog    *consent.Catalog
	CodeTTL    time.Duration
	ConsentTTL time.Duration
	Now        func() time.Time
	Metrics    *metrics.Metrics
}

// AuthorizeRequest is the raw query of GET /oauth2/authorize.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string // space delimited
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// ValidatedRequest is an authorization request whose client and redirect
// URI are trusted.
type ValidatedRequest struct {
	Client              domain.Client
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// RedirectError is an authorization error that may be delivered to the
// client's redirect URI because that URI has been verified.
type RedirectError struct {
	Err         error
	RedirectURI string
	State       string
}

func (e *RedirectError) Error() string { return e.Err.Error() }
func (e *RedirectError) Unwrap() error { return e.Err }

// Location is redirect_uri carrying error, error_description and state.
func (e *RedirectError) Location() string {
	params := url.Values{"error": {Code(e.Err)}}
	if d := Description(e.Err); d != "" {
		params.Set("error_description", d)
	}
	if e.State != "" {
		params.Set("state", e.State)
	}
	return redirectLocation(e.RedirectURI, params)
}

// Validate checks an authorization request. Errors found before the
// redirect URI is trusted are returned bare and must be shown to the user
// agent; later ones come back as *RedirectError.
func (s *AuthorizeService) Validate(ctx context.Context, req AuthorizeRequest) (ValidatedRequest, error) {
	l := slogx.FromContext(ctx)

	clientID := strings.TrimSpace(req.ClientID)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if clientID == "" || redirectURI == "" {
		return ValidatedRequest{}, describe(ErrInvalidRequest, "Missing required parameters: client_id, redirect_uri")
	}

	client, err := s.Clients.Lookup(ctx, clientID)
	if errors.Is(err, ErrClientNotFound) {
		return ValidatedRequest{}, describe(ErrInvalidRequest, "Unknown client_id")
	}
	if err != nil {
		return ValidatedRequest{}, err
	}

	if !client.HasRedirectURI(redirectURI) {
		l.Info("authorize redirect_uri mismatch", "client_id", clientID, "redirect_uri", redirectURI)
		return ValidatedRequest{}, describe(ErrInvalidRequest, "redirect_uri is not registered for this client")
	}

	fail := func(err error) (ValidatedRequest, error) {
		return ValidatedRequest{}, &RedirectError{Err: err, RedirectURI: redirectURI, State: req.State}
	}

	if req.ResponseType != "code" {
		return fail(describe(ErrUnsupportedResponseType, "response_type must be code"))
	}

	scopes := dedupe(strings.Fields(req.Scope))
	if len(scopes) == 0 {
		return fail(describe(ErrInvalidRequest, "Missing required parameter: scope"))
	}
	if unknown := s.Catalog.Unknown(scopes); len(unknown) > 0 {
		return fail(describe(ErrInvalidScope, "Unknown scope %q", unknown[0]))
	}
	for _, scope := range scopes {
		if !client.AllowsScope(scope) {
			return fail(describe(ErrUnauthorizedClient, "Client is not allowed to request scope %q", scope))
		}
	}

	challenge, method, err := validatePKCE(req.CodeChallenge, req.CodeChallengeMethod, client)
	if err != nil {
		return fail(err)
	}

	return ValidatedRequest{
		Client:              client,
		RedirectURI:         redirectURI,
		Scopes:              scopes,
		State:               req.State,
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
	}, nil
}

// validatePKCE requires a challenge from public clients and accepts S256
// only. The method defaults to S256 when a challenge is given without one.
func validatePKCE(challenge, method string, client domain.Client) (string, string, error) {
	challenge = strings.TrimSpace(challenge)
	method = strings.TrimSpace(method)

	if challenge == "" {
		if client.IsPublic() {
			return "", "", describe(ErrInvalidRequest, "PKCE required. Provide code_challenge with method S256.")
		}
		return "", "", nil
	}

	if method == "" || strings.EqualFold(method, cryptox.PKCEMethodS256) {
		return challenge, cryptox.PKCEMethodS256, nil
	}
	return "", "", describe(ErrInvalidRequest, "Unsupported code_challenge_method %q", method)
}

// BeginConsent parks a validated request under a single use ticket and
// describes what the owner is asked to disclose.
func (s *AuthorizeService) BeginConsent(ctx context.Context, userID string, v ValidatedRequest) (authsdk.ConsentPrompt, error) {
	ticket, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return authsdk.ConsentPrompt{}, err
	}

	ttl := s.ConsentTTL
	if ttl <= 0 {
		ttl = DefaultConsentTTL
	}
	issued := now(s.Now)

	err = s.Store.ConsentRequests().CreateConsentRequest(ctx, domain.ConsentRequest{
		ID:                  idx.NewAt(issued).String(),
		TicketHash:          cryptox.FingerprintToken(ticket),
		UserID:              userID,
		ClientID:            v.Client.ID,
		RedirectURI:         v.RedirectURI,
		Scopes:              v.Scopes,
		State:               v.State,
		CodeChallenge:       v.CodeChallenge,
		CodeChallengeMethod: v.CodeChallengeMethod,
		CreatedAt:           issued,
		ExpiresAt:           issued.Add(ttl),
	})
	if err != nil {
		return authsdk.ConsentPrompt{}, err
	}

	return authsdk.ConsentPrompt{
		ConsentTicket: ticket,
		ExpiresIn:     int(ttl / time.Second),
		ClientID:      v.Client.ID,
		ClientName:    v.Client.Name,
		RedirectURI:   v.RedirectURI,
		State:         v.State,
		Scopes:        s.Catalog.Describe(v.Scopes),
	}, nil
}

// Decision is where the user agent goes after the consent form.
type Decision struct {
	Approved bool
	Location string
}

var errTicketExpired = errors.New("consent ticket expired")

// Decide consumes a consent ticket. A denial redirects with access_denied;
// an approval stores a code bound to the normalized field selection.
func (s *AuthorizeService) Decide(ctx context.Context, userID, ticket string, approve bool, selections []string) (Decision, error) {
	l := slogx.FromContext(ctx)

	if ticket == "" {
		return Decision{}, describe(ErrInvalidRequest, "Missing consent_ticket")
	}
	ticketHash := cryptox.FingerprintToken(ticket)
	issued := now(s.Now)

	var decision Decision
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		req, err := tx.ConsentRequests().ConsumeConsentRequest(ctx, ticketHash)
		if errors.Is(err, store.ErrNotFound) {
			return describe(ErrInvalidRequest, "Unknown or already used consent_ticket")
		}
		if err != nil {
			return err
		}
		if req.UserID != userID {
			slogx.SecurityEvent(ctx, "consent_ticket_user_mismatch", "client_id", req.ClientID)
			s.Metrics.SecurityEvent("consent_ticket_user_mismatch")
			return describe(ErrInvalidRequest, "Unknown or already used consent_ticket")
		}
		if req.Expired(issued) {
			return errTicketExpired
		}

		if !approve {
			decision = Decision{Location: redirectLocation(req.RedirectURI, withState(url.Values{
				"error":             {Code(ErrAccessDenied)},
				"error_description": {"User denied the request"},
			}, req.State))}
			return nil
		}

		code, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return err
		}

		granted := s.Catalog.Normalize(req.Scopes, selections)
		ttl := s.CodeTTL
		if ttl <= 0 {
			ttl = DefaultCodeTTL
		}

		err = tx.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
			ID:                  idx.NewAt(issued).String(),
			CodeHash:            cryptox.FingerprintToken(code),
			ClientID:            req.ClientID,
			UserID:              userID,
			RedirectURI:         req.RedirectURI,
			Scopes:              req.Scopes,
			CodeChallenge:       req.CodeChallenge,
			CodeChallengeMethod: req.CodeChallengeMethod,
			GrantedFields:       granted.Clone(),
			IssuedAt:            issued,
			ExpiresAt:           issued.Add(ttl),
		})
		if err != nil {
			return err
		}

		l.Info("authorization code issued",
			"client_id", req.ClientID,
			"scopes", req.Scopes,
			"fields", s.Catalog.DisclosableFields(granted),
		)
		decision = Decision{
			Approved: true,
			Location: redirectLocation(req.RedirectURI, withState(url.Values{"code": {code}}, req.State)),
		}
		return nil
	})
	if errors.Is(err, errTicketExpired) {
		_, _ = s.Store.ConsentRequests().ConsumeConsentRequest(ctx, ticketHash)
		return Decision{}, describe(ErrInvalidRequest, "Consent request expired, start again")
	}
	if err != nil {
		return Decision{}, err
	}

	s.Metrics.ConsentDecision(decision.Approved)
	return decision, nil
}

func withState(params url.Values, state string) url.Values {
	if state != "" {
		params.Set("state", state)
	}
	return params
}

// redirectLocation merges params into base's existing query.
func redirectLocation(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String()
}
