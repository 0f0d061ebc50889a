package service

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// ClientService is the client registry.
type ClientService struct {
	Store   store.Store
	Catalog *consent.Catalog
	Now     func() time.Time
}

type RegisterClientInput struct {
	Name         string
	RedirectURIs []string
	Scopes       []string
	Public       bool
	OwnerUserID  string
}

// Register creates a client. For confidential clients the plaintext secret
// is returned once; only its argon2id hash is kept.
func (s *ClientService) Register(ctx context.Context, in RegisterClientInput) (domain.Client, string, error) {
	l := slogx.FromContext(ctx)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Client{}, "", describe(ErrInvalidRequest, "client name is required")
	}

	uris := validRedirectURIs(in.RedirectURIs)
	if len(uris) == 0 {
		return domain.Client{}, "", describe(ErrInvalidRequest, "at least one http(s) redirect URI is required")
	}

	scopes := dedupe(in.Scopes)
	if len(scopes) == 0 {
		return domain.Client{}, "", describe(ErrInvalidScope, "at least one scope is required")
	}
	if unknown := s.Catalog.Unknown(scopes); len(unknown) > 0 {
		return domain.Client{}, "", describe(ErrInvalidScope, "unknown scope %q", unknown[0])
	}

	id, err := cryptox.GenerateToken(cryptox.TokenSize192)
	if err != nil {
		return domain.Client{}, "", err
	}

	c := domain.Client{
		ID:           id,
		Name:         name,
		RedirectURIs: uris,
		Scopes:       scopes,
		AuthMethod:   domain.AuthMethodNone,
		OwnerUserID:  in.OwnerUserID,
		CreatedAt:    now(s.Now),
	}

	var secret string
	if !in.Public {
		secret, err = cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return domain.Client{}, "", err
		}
		c.SecretHash, err = cryptox.HashSecret(secret)
		if err != nil {
			l.Error("failed to hash client secret", "error", err)
			return domain.Client{}, "", err
		}
		c.AuthMethod = domain.AuthMethodClientSecretPost
	}

	if err := s.Store.Clients().CreateClient(ctx, c); err != nil {
		l.Error("failed to create client", "error", err)
		return domain.Client{}, "", err
	}

	l.Info("client registered", "client_id", c.ID, "name", c.Name, "public", c.IsPublic(), "owner", c.OwnerUserID)
	return c, secret, nil
}

// Lookup returns ErrClientNotFound for unknown ids.
func (s *ClientService) Lookup(ctx context.Context, clientID string) (domain.Client, error) {
	if clientID == "" {
		return domain.Client{}, ErrClientNotFound
	}
	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Client{}, ErrClientNotFound
	}
	return c, err
}

// VerifySecret is false for public clients and for any mismatch.
func (s *ClientService) VerifySecret(c domain.Client, candidate string) bool {
	if c.IsPublic() || candidate == "" {
		return false
	}
	return cryptox.VerifySecret(candidate, c.SecretHash) == nil
}

func (s *ClientService) List(ctx context.Context, ownerUserID string) ([]domain.Client, error) {
	return s.Store.Clients().ListClientsByOwner(ctx, ownerUserID)
}

// Delete removes a client owned by ownerUserID along with its codes and
// tokens.
func (s *ClientService) Delete(ctx context.Context, clientID, ownerUserID string) error {
	err := s.Store.Clients().DeleteClient(ctx, clientID, ownerUserID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrClientNotFound
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("client deleted", "client_id", clientID, "owner", ownerUserID)
	return nil
}

// validRedirectURIs keeps absolute http(s) URIs without fragments, deduped
// in input order.
func validRedirectURIs(in []string) []string {
	var out []string
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || u.Fragment != "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if !slices.Contains(out, raw) {
			out = append(out, raw)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// now is truncated to the second, the resolution of stored timestamps.
func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC().Truncate(time.Second)
	}
	return time.Now().UTC().Truncate(time.Second)
}
