package service

import (
	"context"
	"strings"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

// GrantType is the closed set of grants the token endpoint accepts.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

// TokenRequest is the decoded body of POST /oauth2/token.
type TokenRequest struct {
	GrantType    GrantType
	ClientID     string
	ClientSecret string

	Code         string
	RedirectURI  string
	CodeVerifier string

	RefreshToken string
}

// GrantHandler runs Authenticate, Validate and Issue in that order.
type GrantHandler struct {
	Authenticate func(ctx context.Context, req TokenRequest) (domain.Client, error)
	Validate     func(client domain.Client, req TokenRequest) error
	Issue        func(ctx context.Context, client domain.Client, req TokenRequest) (domain.TokenPair, error)
}

type GrantRegistry map[GrantType]GrantHandler

func (s *TokenService) grants() GrantRegistry {
	return GrantRegistry{
		GrantAuthorizationCode: {
			Authenticate: s.authenticateClient,
			Validate: func(_ domain.Client, req TokenRequest) error {
				if req.Code == "" || req.RedirectURI == "" {
					return describe(ErrInvalidRequest, "Missing code or redirect_uri")
				}
				return nil
			},
			Issue: s.exchangeAuthorizationCode,
		},
		GrantRefreshToken: {
			Authenticate: s.authenticateClient,
			Validate: func(_ domain.Client, req TokenRequest) error {
				if req.RefreshToken == "" {
					return describe(ErrInvalidRequest, "Missing refresh_token")
				}
				return nil
			},
			Issue: s.rotateRefreshToken,
		},
	}
}

// Exchange dispatches req to its grant handler.
func (s *TokenService) Exchange(ctx context.Context, req TokenRequest) (domain.TokenPair, error) {
	req = trimRequest(req)

	h, ok := s.grants()[req.GrantType]
	if !ok {
		return domain.TokenPair{}, describe(ErrUnsupportedGrantType, "Only authorization_code and refresh_token are supported")
	}

	pair, err := s.run(ctx, h, req)
	if err != nil {
		s.Metrics.TokenRejected(string(req.GrantType), Code(err))
		return domain.TokenPair{}, err
	}
	s.Metrics.TokenIssued(string(req.GrantType))
	return pair, nil
}

func (s *TokenService) run(ctx context.Context, h GrantHandler, req TokenRequest) (domain.TokenPair, error) {
	client, err := h.Authenticate(ctx, req)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := h.Validate(client, req); err != nil {
		return domain.TokenPair{}, err
	}
	return h.Issue(ctx, client, req)
}

func trimRequest(req TokenRequest) TokenRequest {
	req.GrantType = GrantType(strings.TrimSpace(string(req.GrantType)))
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.Code = strings.TrimSpace(req.Code)
	req.RedirectURI = strings.TrimSpace(req.RedirectURI)
	req.CodeVerifier = strings.TrimSpace(req.CodeVerifier)
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	return req
}
