// Package storetest is a conformance suite run against every store driver.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/idx"
)

// Run exercises s, which must be freshly migrated and empty.
func Run(t *testing.T, s store.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, s) })
	t.Run("clients", func(t *testing.T) { testClients(t, s) })
	t.Run("authorization codes", func(t *testing.T) { testAuthorizationCodes(t, s) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, s) })
	t.Run("consent requests", func(t *testing.T) { testConsentRequests(t, s) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, s) })
}

var epoch = time.Unix(1_750_000_000, 0).UTC()

func seedUser(t *testing.T, s store.Store) domain.User {
	t.Helper()
	id := idx.New().String()
	u := domain.User{
		ID:        id,
		PESUPRN:   "pes" + id,
		Profile:   domain.Profile{"name": "Test User"},
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func seedClient(t *testing.T, s store.Store, owner string) domain.Client {
	t.Helper()
	c := domain.Client{
		ID:           idx.New().String(),
		Name:         "Test App",
		SecretHash:   "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		RedirectURIs: []string{"https://app.example/cb", "http://localhost:3000/cb"},
		Scopes:       []string{"profile:basic", "profile:contact"},
		AuthMethod:   domain.AuthMethodClientSecretPost,
		OwnerUserID:  owner,
		CreatedAt:    epoch,
	}
	require.NoError(t, s.Clients().CreateClient(context.Background(), c))
	return c
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s)

	got, err := s.Users().GetUserByPRN(ctx, u.PESUPRN)
	require.NoError(t, err)
	require.Equal(t, u, got)

	dup := u
	dup.ID = idx.New().String()
	err = s.Users().CreateUser(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	later := epoch.Add(time.Hour)
	require.NoError(t, s.Users().UpdateUserProfile(ctx, u.ID, domain.Profile{"name": "Renamed", "semester": float64(5)}, later))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Profile["name"])
	require.Equal(t, float64(5), got.Profile["semester"])
	require.Equal(t, later, got.UpdatedAt)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Users().UpdateUserProfile(ctx, "missing", nil, later), store.ErrNotFound)
}

func testClients(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := seedUser(t, s)
	other := seedUser(t, s)

	c := seedClient(t, s, owner.ID)
	got, err := s.Clients().GetClientByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, c, got)

	public := seedClient(t, s, owner.ID)
	public.SecretHash = ""
	public.AuthMethod = domain.AuthMethodNone
	public.ID = idx.New().String()
	public.CreatedAt = epoch.Add(time.Minute)
	require.NoError(t, s.Clients().CreateClient(ctx, public))

	list, err := s.Clients().ListClientsByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, public.ID, list[0].ID, "newest first")
	require.True(t, list[0].IsPublic())

	empty, err := s.Clients().ListClientsByOwner(ctx, other.ID)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.ErrorIs(t, s.Clients().DeleteClient(ctx, c.ID, other.ID), store.ErrNotFound)
	require.NoError(t, s.Clients().DeleteClient(ctx, c.ID, owner.ID))
	_, err = s.Clients().GetClientByID(ctx, c.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func newCode(u domain.User, c domain.Client) domain.AuthorizationCode {
	id := idx.New().String()
	return domain.AuthorizationCode{
		ID:                  id,
		CodeHash:            "code-" + id,
		ClientID:            c.ID,
		UserID:              u.ID,
		RedirectURI:         c.RedirectURIs[0],
		Scopes:              []string{"profile:basic"},
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
		GrantedFields:       domain.GrantedFields{"profile:basic": {"name"}},
		IssuedAt:            epoch,
		ExpiresAt:           epoch.Add(10 * time.Minute),
	}
}

func testAuthorizationCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s)
	c := seedClient(t, s, u.ID)

	code := newCode(u, c)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	_, err := s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash, "another-client")
	require.ErrorIs(t, err, store.ErrNotFound, "code is bound to its client")

	got, err := s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash, c.ID)
	require.NoError(t, err)
	require.Equal(t, code, got)

	_, err = s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash, c.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "single use")

	t.Run("concurrent consumers", func(t *testing.T) {
		code := newCode(u, c)
		require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.WithTx(ctx, func(tx store.Tx) error {
					_, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash, c.ID)
					return err
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
					return
				}
				if !errors.Is(err, store.ErrNotFound) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	stale := newCode(u, c)
	stale.ExpiresAt = epoch.Add(-time.Second)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, stale))
	n, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, epoch)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func newToken(u domain.User, c domain.Client, issued time.Time) domain.Token {
	id := idx.New().String()
	return domain.Token{
		ID:               id,
		AccessTokenHash:  "at-" + id,
		RefreshTokenHash: "rt-" + id,
		ClientID:         c.ID,
		UserID:           u.ID,
		Scopes:           []string{"profile:basic", "profile:contact"},
		GrantedFields:    domain.GrantedFields{"profile:basic": {"name", "srn"}, "profile:contact": {}},
		IssuedAt:         issued,
		ExpiresIn:        time.Hour,
	}
}

func testTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s)
	c := seedClient(t, s, u.ID)

	tok := newToken(u, c, epoch)
	require.NoError(t, s.Tokens().CreateToken(ctx, tok))

	got, err := s.Tokens().GetTokenByAccessHash(ctx, tok.AccessTokenHash)
	require.NoError(t, err)
	require.Equal(t, tok, got)

	revoked, err := s.Tokens().RevokeRefreshToken(ctx, tok.RefreshTokenHash)
	require.NoError(t, err)
	require.True(t, revoked.Revoked)
	require.Equal(t, tok.ID, revoked.ID)

	_, err = s.Tokens().RevokeRefreshToken(ctx, tok.RefreshTokenHash)
	require.ErrorIs(t, err, store.ErrNotFound, "second rotation must lose")

	got, err = s.Tokens().GetTokenByRefreshHash(ctx, tok.RefreshTokenHash)
	require.NoError(t, err)
	require.True(t, got.Revoked)

	a := newToken(u, c, epoch)
	b := newToken(u, c, epoch)
	require.NoError(t, s.Tokens().CreateToken(ctx, a))
	require.NoError(t, s.Tokens().CreateToken(ctx, b))
	n, err := s.Tokens().RevokeUserClientTokens(ctx, u.ID, c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	live := newToken(u, c, epoch.Add(3*time.Hour))
	require.NoError(t, s.Tokens().CreateToken(ctx, live))
	n, err = s.Tokens().DeleteDeadTokens(ctx, epoch.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	_, err = s.Tokens().GetTokenByAccessHash(ctx, live.AccessTokenHash)
	require.NoError(t, err)
}

func testConsentRequests(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s)
	c := seedClient(t, s, u.ID)

	req := domain.ConsentRequest{
		ID:          idx.New().String(),
		TicketHash:  "ticket-" + idx.New().String(),
		UserID:      u.ID,
		ClientID:    c.ID,
		RedirectURI: c.RedirectURIs[1],
		Scopes:      []string{"profile:basic"},
		State:       "xyz",
		CreatedAt:   epoch,
		ExpiresAt:   epoch.Add(10 * time.Minute),
	}
	require.NoError(t, s.ConsentRequests().CreateConsentRequest(ctx, req))

	got, err := s.ConsentRequests().ConsumeConsentRequest(ctx, req.TicketHash)
	require.NoError(t, err)
	require.Equal(t, req, got)

	_, err = s.ConsentRequests().ConsumeConsentRequest(ctx, req.TicketHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	req.ID = idx.New().String()
	req.TicketHash = "ticket-" + req.ID
	req.ExpiresAt = epoch
	require.NoError(t, s.ConsentRequests().CreateConsentRequest(ctx, req))
	n, err := s.ConsentRequests().DeleteExpiredConsentRequests(ctx, epoch)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := seedUser(t, s)
	c := seedClient(t, s, u.ID)
	code := newCode(u, c)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	errValidation := errors.New("validation failed")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash, c.ID)
		require.NoError(t, err)
		return errValidation
	})
	require.ErrorIs(t, err, errValidation)

	_, err = s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash, c.ID)
	require.NoError(t, err, "rolled back consumption leaves the code redeemable")
}
