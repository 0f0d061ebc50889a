package service

import (
	"context"
	"errors"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// ResourceService is the resource protector: bearer validation followed by
// the field level projection of the owner's profile.
type ResourceService struct {
	Store   store.Store
	Catalog *consent.Catalog
	Now     func() time.Time
	Metrics *metrics.Metrics
}

// UserInfo returns the fields accessToken may disclose. ErrInvalidToken
// for unknown, expired or revoked tokens; ErrInsufficientScope when the
// projection is empty.
func (s *ResourceService) UserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	data, err := s.userInfo(ctx, accessToken)
	switch {
	case err == nil:
		s.Metrics.ResourceRequest("ok")
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInsufficientScope):
		s.Metrics.ResourceRequest(Code(err))
	default:
		s.Metrics.ResourceRequest("error")
	}
	return data, err
}

func (s *ResourceService) userInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	if accessToken == "" {
		return nil, describe(ErrInvalidToken, "Missing or malformed Authorization header")
	}

	tok, err := s.Store.Tokens().GetTokenByAccessHash(ctx, cryptox.FingerprintToken(accessToken))
	if errors.Is(err, store.ErrNotFound) {
		return nil, describe(ErrInvalidToken, "Token is invalid or expired")
	}
	if err != nil {
		return nil, err
	}
	if !tok.IsAccessTokenActive(now(s.Now)) {
		return nil, describe(ErrInvalidToken, "Token is invalid or expired")
	}

	user, err := s.Store.Users().GetUserByID(ctx, tok.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, describe(ErrInvalidToken, "User not found")
	}
	if err != nil {
		return nil, err
	}

	data := s.Catalog.Project(tok.Scopes, tok.GrantedFields, user.Profile)
	if len(data) == 0 {
		return nil, describe(ErrInsufficientScope, "No data available with granted permissions")
	}

	slogx.FromContext(ctx).Debug("resource served", "client_id", tok.ClientID, "fields", len(data))
	return data, nil
}
