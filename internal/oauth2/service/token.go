package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
	"github.com/pesuauth/pesu-oauth2/pkg/idx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

const DefaultAccessTTL = time.Hour

// TokenService is the token issuer behind POST /oauth2/token.
type TokenService struct {
	Store     store.Store
	Clients   *ClientService
	AccessTTL time.Duration
	Now       func() time.Time
	Metrics   *metrics.Metrics

	// RevokeAllOnRefreshReuse revokes every token of the user and client
	// when an already rotated refresh token is presented again.
	RevokeAllOnRefreshReuse bool
}

// authenticateClient resolves the client. Confidential clients must present
// their secret; public clients are identified only and rely on PKCE.
func (s *TokenService) authenticateClient(ctx context.Context, req TokenRequest) (domain.Client, error) {
	l := slogx.FromContext(ctx)

	if req.ClientID == "" {
		return domain.Client{}, describe(ErrInvalidClient, "Missing client_id")
	}

	client, err := s.Clients.Lookup(ctx, req.ClientID)
	if errors.Is(err, ErrClientNotFound) {
		return domain.Client{}, describe(ErrInvalidClient, "Unknown client_id")
	}
	if err != nil {
		return domain.Client{}, err
	}

	if client.IsPublic() {
		return client, nil
	}
	if req.ClientSecret == "" {
		return domain.Client{}, describe(ErrInvalidClient, "Missing client_secret")
	}
	if !s.Clients.VerifySecret(client, req.ClientSecret) {
		l.Info("client authentication failed", "client_id", client.ID, "grant_type", req.GrantType)
		return domain.Client{}, describe(ErrInvalidClient, "Invalid client_secret")
	}
	return client, nil
}

var errCodeExpired = errors.New("authorization code expired")

// exchangeAuthorizationCode redeems a code. The delete, the checks and the
// token insert share one transaction: a failed check rolls the delete back
// and of two concurrent redemptions only one can delete the row.
func (s *TokenService) exchangeAuthorizationCode(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	codeHash := cryptox.FingerprintToken(req.Code)
	issued := now(s.Now)

	var pair domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		code, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, codeHash, client.ID)
		if errors.Is(err, store.ErrNotFound) {
			slogx.SecurityEvent(ctx, "authorization_code_reuse", "client_id", client.ID,
				"detail", "code unknown or already redeemed")
			s.Metrics.SecurityEvent("authorization_code_reuse")
			return describe(ErrInvalidGrant, "Invalid authorization code")
		}
		if err != nil {
			return err
		}

		if code.Expired(issued) {
			return errCodeExpired
		}
		if code.RedirectURI != req.RedirectURI {
			return describe(ErrInvalidGrant, "Redirect URI mismatch")
		}
		if client.IsPublic() && code.CodeChallenge == "" {
			return describe(ErrInvalidGrant, "Missing PKCE challenge")
		}
		if !cryptox.VerifyPKCE(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier) {
			l.Info("pkce verification failed", "client_id", client.ID)
			return describe(ErrInvalidGrant, "PKCE verification failed")
		}

		pair, err = s.mint(ctx, tx, client.ID, code.UserID, code.Scopes, code.GrantedFields, issued)
		return err
	})
	if errors.Is(err, errCodeExpired) {
		if derr := s.Store.AuthorizationCodes().DeleteAuthorizationCode(ctx, codeHash); derr != nil {
			l.Error("failed to delete expired authorization code", "error", derr)
		}
		return domain.TokenPair{}, describe(ErrInvalidGrant, "Code expired")
	}
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// rotateRefreshToken revokes the presented refresh token and issues a new
// pair with the same scope and a copy of the same granted fields. Rotation
// is one level deep.
func (s *TokenService) rotateRefreshToken(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	hash := cryptox.FingerprintToken(req.RefreshToken)
	issued := now(s.Now)

	var (
		pair   domain.TokenPair
		reused *domain.Token
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		old, err := tx.Tokens().RevokeRefreshToken(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			prev, lerr := tx.Tokens().GetTokenByRefreshHash(ctx, hash)
			switch {
			case lerr == nil && prev.Revoked:
				reused = &prev
			case lerr != nil && !errors.Is(lerr, store.ErrNotFound):
				return lerr
			}
			return describe(ErrInvalidGrant, "Invalid or expired refresh token")
		}
		if err != nil {
			return err
		}

		if old.ClientID != client.ID {
			slogx.SecurityEvent(ctx, "refresh_token_client_mismatch", "client_id", client.ID, "token_client_id", old.ClientID)
			s.Metrics.SecurityEvent("refresh_token_client_mismatch")
			return describe(ErrInvalidGrant, "Token does not belong to this client")
		}
		if !issued.Before(old.RefreshExpiresAt()) {
			return describe(ErrInvalidGrant, "Invalid or expired refresh token")
		}

		pair, err = s.mint(ctx, tx, client.ID, old.UserID, old.Scopes, old.GrantedFields, issued)
		return err
	})

	if reused != nil {
		s.handleRefreshReuse(ctx, client, *reused)
	}
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Debug("refresh token rotated", "client_id", client.ID)
	return pair, nil
}

func (s *TokenService) handleRefreshReuse(ctx context.Context, client domain.Client, tok domain.Token) {
	l := slogx.FromContext(ctx)

	slogx.SecurityEvent(ctx, "refresh_token_reuse",
		"client_id", client.ID,
		"token_id", tok.ID,
		"user_id", tok.UserID,
		"revoke_all", s.RevokeAllOnRefreshReuse,
	)
	s.Metrics.SecurityEvent("refresh_token_reuse")

	if !s.RevokeAllOnRefreshReuse || tok.ClientID != client.ID {
		return
	}
	n, err := s.Store.Tokens().RevokeUserClientTokens(ctx, tok.UserID, tok.ClientID)
	if err != nil {
		l.Error("failed to revoke tokens after refresh token reuse", "error", err)
		return
	}
	l.Warn("revoked all tokens after refresh token reuse", "client_id", client.ID, "user_id", tok.UserID, "revoked", n)
}

// mint persists a new token pair in tx. The granted record is cloned so the
// new token never aliases its source.
func (s *TokenService) mint(
	ctx context.Context,
	tx store.Tx,
	clientID, userID string,
	scopes []string,
	granted domain.GrantedFields,
	issued time.Time,
) (domain.TokenPair, error) {
	access, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.TokenPair{}, err
	}

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	err = tx.Tokens().CreateToken(ctx, domain.Token{
		ID:               idx.NewAt(issued).String(),
		AccessTokenHash:  cryptox.FingerprintToken(access),
		RefreshTokenHash: cryptox.FingerprintToken(refresh),
		ClientID:         clientID,
		UserID:           userID,
		Scopes:           scopes,
		GrantedFields:    granted.Clone(),
		IssuedAt:         issued,
		ExpiresIn:        ttl,
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    ttl,
		Scope:        strings.Join(scopes, " "),
	}, nil
}
