package domain

import "time"

// TokenPair is what the token endpoint hands back. The values are only
// known at issuance; storage keeps fingerprints.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Scope        string // space delimited
}

// Token is one persisted access/refresh pair.
type Token struct {
	ID               string
	AccessTokenHash  string
	RefreshTokenHash string
	ClientID         string
	UserID           string
	Scopes           []string
	GrantedFields    GrantedFields
	IssuedAt         time.Time
	ExpiresIn        time.Duration
	Revoked          bool
}

// AccessExpiresAt is issued_at + expires_in.
func (t Token) AccessExpiresAt() time.Time {
	return t.IssuedAt.Add(t.ExpiresIn)
}

// RefreshExpiresAt is issued_at + 2*expires_in.
func (t Token) RefreshExpiresAt() time.Time {
	return t.IssuedAt.Add(2 * t.ExpiresIn)
}

// IsAccessTokenActive reports whether the access token may be used at now.
func (t Token) IsAccessTokenActive(now time.Time) bool {
	return !t.Revoked && now.Before(t.AccessExpiresAt())
}

// IsRefreshTokenActive reports whether the refresh token may be redeemed at now.
func (t Token) IsRefreshTokenActive(now time.Time) bool {
	return !t.Revoked && now.Before(t.RefreshExpiresAt())
}
