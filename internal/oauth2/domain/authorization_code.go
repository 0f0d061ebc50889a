package domain

import "time"

// AuthorizationCode is a pending code exchange. It lives until redeemed or
// purged; there is no "used" state, redemption deletes the row.
type AuthorizationCode struct {
	ID                  string
	CodeHash            string
	ClientID            string
	UserID              string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	GrantedFields       GrantedFields
	IssuedAt            time.Time
	ExpiresAt           time.Time
}

func (c AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
