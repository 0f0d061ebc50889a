package service

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/identity"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/drivers/sqlite"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
)

const (
	testRedirect = "https://app.example/callback"
	testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1_750_000_000, 0).UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeBridge struct {
	res   identity.Result
	err   error
	calls []string
}

func (b *fakeBridge) Authenticate(_ context.Context, username, _ string) (identity.Result, error) {
	b.calls = append(b.calls, username)
	return b.res, b.err
}

// env wires every service over one fresh sqlite file.
type env struct {
	store     store.Store
	clock     *fakeClock
	catalog   *consent.Catalog
	clients   *ClientService
	authorize *AuthorizeService
	tokens    *TokenService
	resource  *ResourceService
	users     *UserService
	bridge    *fakeBridge
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "oauth2.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	clock := newClock()
	catalog := consent.Default()
	clients := &ClientService{Store: s, Catalog: catalog, Now: clock.Now}
	bridge := &fakeBridge{}

	return &env{
		store:   s,
		clock:   clock,
		catalog: catalog,
		clients: clients,
		authorize: &AuthorizeService{
			Store: s, Clients: clients, Catalog: catalog, Now: clock.Now,
		},
		tokens:   &TokenService{Store: s, Clients: clients, Now: clock.Now},
		resource: &ResourceService{Store: s, Catalog: catalog, Now: clock.Now},
		users:    &UserService{Store: s, Bridge: bridge, Now: clock.Now, Admins: []string{"pes1201800001"}},
		bridge:   bridge,
	}
}

func (e *env) owner(t *testing.T) domain.User {
	t.Helper()
	e.bridge.res = identity.Result{Success: true, Profile: domain.Profile{
		"name":    "Asha Rao",
		"prn":     "PES1201800001",
		"srn":     "PES1UG20CS001",
		"email":   "asha@example.com",
		"program": "B.Tech",
	}}
	u, err := e.users.Login(context.Background(), "PES1201800001", "pw")
	require.NoError(t, err)
	return u
}

func (e *env) client(t *testing.T, owner domain.User, public bool) (domain.Client, string) {
	t.Helper()
	c, secret, err := e.clients.Register(context.Background(), RegisterClientInput{
		Name:         "Timetable",
		RedirectURIs: []string{testRedirect},
		Scopes:       []string{"profile:basic", "profile:contact", "profile:academic"},
		Public:       public,
		OwnerUserID:  owner.ID,
	})
	require.NoError(t, err)
	return c, secret
}

// issueCode walks validate, consent and approval and returns the code.
func (e *env) issueCode(t *testing.T, user domain.User, c domain.Client, scope string, selections ...string) string {
	t.Helper()
	ctx := context.Background()

	v, err := e.authorize.Validate(ctx, AuthorizeRequest{
		ResponseType:        "code",
		ClientID:            c.ID,
		RedirectURI:         testRedirect,
		Scope:               scope,
		State:               "st4te",
		CodeChallenge:       cryptox.S256Challenge(testVerifier),
		CodeChallengeMethod: "S256",
	})
	require.NoError(t, err)

	prompt, err := e.authorize.BeginConsent(ctx, user.ID, v)
	require.NoError(t, err)

	d, err := e.authorize.Decide(ctx, user.ID, prompt.ConsentTicket, true, selections)
	require.NoError(t, err)
	require.True(t, d.Approved)

	u, err := url.Parse(d.Location)
	require.NoError(t, err)
	require.Equal(t, "st4te", u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (e *env) exchange(c domain.Client, secret, code string) (domain.TokenPair, error) {
	return e.tokens.Exchange(context.Background(), TokenRequest{
		GrantType:    GrantAuthorizationCode,
		ClientID:     c.ID,
		ClientSecret: secret,
		Code:         code,
		RedirectURI:  testRedirect,
		CodeVerifier: testVerifier,
	})
}

func (e *env) refresh(c domain.Client, secret, refreshToken string) (domain.TokenPair, error) {
	return e.tokens.Exchange(context.Background(), TokenRequest{
		GrantType:    GrantRefreshToken,
		ClientID:     c.ID,
		ClientSecret: secret,
		RefreshToken: refreshToken,
	})
}
