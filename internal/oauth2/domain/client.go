package domain

import (
	"slices"
	"time"
)

// Token endpoint authentication methods.
const (
	AuthMethodClientSecretPost = "client_secret_post"
	AuthMethodNone             = "none"
)

type Client struct {
	ID           string
	Name         string
	SecretHash   string // argon2id PHC string; empty for public clients
	RedirectURIs []string
	Scopes       []string // scopes the client may request
	AuthMethod   string
	OwnerUserID  string
	CreatedAt    time.Time
}

// IsPublic reports whether the client authenticates by PKCE alone.
func (c Client) IsPublic() bool {
	return c.AuthMethod == AuthMethodNone || c.SecretHash == ""
}

// HasRedirectURI reports an exact, case sensitive match against the
// registered set. No prefix or pattern matching is performed.
func (c Client) HasRedirectURI(uri string) bool {
	return uri != "" && slices.Contains(c.RedirectURIs, uri)
}

// AllowsScope reports whether scope was registered for the client.
func (c Client) AllowsScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}
