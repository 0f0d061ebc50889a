package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/identity"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/drivers/sqlite"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/sessionx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

const testRedirect = "https://app.example/callback"

// stubBridge accepts any password and answers with the profile registered
// for the username.
type stubBridge struct {
	profiles map[string]domain.Profile
}

func (b *stubBridge) Authenticate(_ context.Context, username, password string) (identity.Result, error) {
	p, ok := b.profiles[username]
	if !ok || password == "" {
		return identity.Result{Success: false, Error: "Invalid credentials"}, nil
	}
	return identity.Result{Success: true, Profile: p}, nil
}

type testServer struct {
	*httptest.Server
	router  *Router
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "oauth2.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sessions, err := sessionx.NewManager([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	m := metrics.New()
	catalog := consent.Default()
	bridge := &stubBridge{profiles: map[string]domain.Profile{
		"pes1201800001": {
			"name":  "Asha Rao",
			"prn":   "PES1201800001",
			"srn":   "PES1UG20CS001",
			"email": "asha@example.com",
			"phone": "9000000000",
		},
		"pes1201800002": {
			"name": "Ravi Kumar",
			"prn":  "PES1201800002",
		},
	}}

	clients := &service.ClientService{Store: st, Catalog: catalog}
	r := NewRouter("test", st, sessions, m, slogx.Discard())
	r.Catalog = catalog
	r.ClientService = clients
	r.AuthorizeService = &service.AuthorizeService{Store: st, Clients: clients, Catalog: catalog, Metrics: m}
	r.TokenService = &service.TokenService{Store: st, Clients: clients, Metrics: m}
	r.ResourceService = &service.ResourceService{Store: st, Catalog: catalog, Metrics: m}
	r.UserService = &service.UserService{Store: st, Bridge: bridge, Metrics: m, Admins: []string{"pes1201800001"}}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, router: r, metrics: m}
}

// browser returns a cookie keeping client that does not follow redirects.
func (s *testServer) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *testServer) login(t *testing.T, c *http.Client, username string) {
	t.Helper()
	resp, err := c.PostForm(s.URL+"/login", url.Values{"username": {username}, "password": {"pw"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (s *testServer) registerClient(t *testing.T, c *http.Client, public bool, scopes ...string) authsdk.ClientResponse {
	t.Helper()
	body, err := json.Marshal(authsdk.CreateClientRequest{
		Name:         "Timetable",
		RedirectURIs: []string{testRedirect},
		Scopes:       scopes,
		Public:       public,
	})
	require.NoError(t, err)

	resp, err := c.Post(s.URL+"/v1/clients", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out authsdk.ClientResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// prompt follows an authorize URL with the browser's session.
func (s *testServer) prompt(t *testing.T, c *http.Client, authURL string) authsdk.ConsentPrompt {
	t.Helper()
	resp, err := c.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p authsdk.ConsentPrompt
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

// decide posts a consent decision and returns the redirect target.
func (s *testServer) decide(t *testing.T, c *http.Client, form url.Values) *url.URL {
	t.Helper()
	resp, err := c.PostForm(s.URL+"/oauth2/authorize", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc
}

func decodeOAuth2Error(t *testing.T, resp *http.Response) authsdk.ErrorResponse {
	t.Helper()
	var e authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}
