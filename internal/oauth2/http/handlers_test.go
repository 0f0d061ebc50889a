package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
)

const testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

func authorizeURL(base string, q url.Values) string {
	return base + "/oauth2/authorize?" + q.Encode()
}

func TestAuthorizeGet(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.browser(t)
	srv.login(t, admin, "PES1201800001")
	reg := srv.registerClient(t, admin, true, "profile:basic")

	valid := func() url.Values {
		return url.Values{
			"response_type":  {"code"},
			"client_id":      {reg.ClientID},
			"redirect_uri":   {testRedirect},
			"scope":          {"profile:basic"},
			"state":          {"s1"},
			"code_challenge": {cryptox.S256Challenge(testVerifier)},
		}
	}

	t.Run("no session redirects to login with next", func(t *testing.T) {
		anon := srv.browser(t)
		resp, err := anon.Get(authorizeURL(srv.URL, valid()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", loc.Path)
		next := loc.Query().Get("next")
		require.True(t, strings.HasPrefix(next, "/oauth2/authorize?"))
		require.True(t, isSafeNext(next))
	})

	t.Run("unknown client is never redirected", func(t *testing.T) {
		q := valid()
		q.Set("client_id", "nope")
		resp, err := admin.Get(authorizeURL(srv.URL, q))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid_request", decodeOAuth2Error(t, resp).Error)
	})

	t.Run("unregistered redirect_uri is never redirected", func(t *testing.T) {
		q := valid()
		q.Set("redirect_uri", "https://evil.example/cb")
		resp, err := admin.Get(authorizeURL(srv.URL, q))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Location"))
	})

	tests := []struct {
		name   string
		mutate func(url.Values)
		code   string
	}{
		{"bad response_type", func(q url.Values) { q.Set("response_type", "token") }, "unsupported_response_type"},
		{"unknown scope", func(q url.Values) { q.Set("scope", "profile:admin") }, "invalid_scope"},
		{"scope not allowed for client", func(q url.Values) { q.Set("scope", "profile:photo") }, "unauthorized_client"},
		{"public client without PKCE", func(q url.Values) { q.Del("code_challenge") }, "invalid_request"},
		{"plain PKCE", func(q url.Values) { q.Set("code_challenge_method", "plain") }, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name+" redirects with error", func(t *testing.T) {
			q := valid()
			tt.mutate(q)
			resp, err := admin.Get(authorizeURL(srv.URL, q))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusFound, resp.StatusCode)

			loc, err := url.Parse(resp.Header.Get("Location"))
			require.NoError(t, err)
			require.Equal(t, "app.example", loc.Host)
			require.Equal(t, tt.code, loc.Query().Get("error"))
			require.Equal(t, "s1", loc.Query().Get("state"))
		})
	}
}

func TestAuthorizePost(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.browser(t)
	srv.login(t, admin, "PES1201800001")
	reg := srv.registerClient(t, admin, false, "profile:basic")

	start := func(t *testing.T) authsdk.ConsentPrompt {
		return srv.prompt(t, admin, authorizeURL(srv.URL, url.Values{
			"response_type": {"code"},
			"client_id":     {reg.ClientID},
			"redirect_uri":  {testRedirect},
			"scope":         {"profile:basic"},
			"state":         {"s2"},
		}))
	}

	t.Run("deny redirects with access_denied", func(t *testing.T) {
		p := start(t)
		loc := srv.decide(t, admin, url.Values{"consent_ticket": {p.ConsentTicket}})
		require.Equal(t, "access_denied", loc.Query().Get("error"))
		require.Equal(t, "User denied the request", loc.Query().Get("error_description"))
		require.Equal(t, "s2", loc.Query().Get("state"))
		require.Empty(t, loc.Query().Get("code"))
	})

	t.Run("ticket is single use", func(t *testing.T) {
		p := start(t)
		srv.decide(t, admin, url.Values{"consent_ticket": {p.ConsentTicket}, "confirm": {"yes"}})

		resp, err := admin.PostForm(srv.URL+"/oauth2/authorize", url.Values{"consent_ticket": {p.ConsentTicket}, "confirm": {"yes"}})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid_request", decodeOAuth2Error(t, resp).Error)
	})

	t.Run("another owner cannot use the ticket", func(t *testing.T) {
		p := start(t)

		other := srv.browser(t)
		srv.login(t, other, "PES1201800002")
		resp, err := other.PostForm(srv.URL+"/oauth2/authorize", url.Values{"consent_ticket": {p.ConsentTicket}, "confirm": {"yes"}})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// The rightful owner still can.
		loc := srv.decide(t, admin, url.Values{"consent_ticket": {p.ConsentTicket}, "confirm": {"yes"}})
		require.NotEmpty(t, loc.Query().Get("code"))
	})

	t.Run("no session", func(t *testing.T) {
		resp, err := srv.browser(t).PostForm(srv.URL+"/oauth2/authorize", url.Values{"consent_ticket": {"x"}})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "login_required", decodeOAuth2Error(t, resp).Error)
	})
}

func TestTokenEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unsupported grant type", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/oauth2/token", url.Values{"grant_type": {"password"}})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.Equal(t, "unsupported_grant_type", decodeOAuth2Error(t, resp).Error)
	})

	t.Run("json body is accepted", func(t *testing.T) {
		body := `{"grant_type":"authorization_code","client_id":"missing","code":"c","redirect_uri":"` + testRedirect + `"}`
		resp, err := http.Post(srv.URL+"/oauth2/token", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decodeOAuth2Error(t, resp)
		require.Equal(t, "invalid_client", e.Error)
		require.Equal(t, "Unknown client_id", e.ErrorDescription)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/oauth2/token", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("GET is rejected", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/oauth2/token")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("CORS preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/oauth2/token", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://app.example")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestUserResource(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/user")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)

		var e authsdk.ResourceErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
		require.Equal(t, "invalid_token", e.Error)
		require.Equal(t, "Missing or malformed Authorization header", e.Message)
	})

	t.Run("unknown token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/user", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestEmptyGrantIsInsufficientScope(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.browser(t)
	srv.login(t, admin, "PES1201800001")
	reg := srv.registerClient(t, admin, false, "profile:basic")

	rp := authsdk.NewClient(srv.URL, reg.ClientID, reg.ClientSecret, testRedirect, "profile:basic")
	rp.HTTPClient = srv.Client()
	authURL, verifier := rp.AuthCodeURL("s")

	p := srv.prompt(t, admin, authURL)
	loc := srv.decide(t, admin, url.Values{"consent_ticket": {p.ConsentTicket}, "confirm": {"yes"}})

	tok, err := rp.Exchange(t.Context(), loc.Query().Get("code"), verifier)
	require.NoError(t, err)

	_, err = rp.Profile(t.Context(), tok)
	var re *authsdk.ResourceError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusForbidden, re.StatusCode)
	require.Equal(t, "insufficient_scope", re.Code)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	t.Run("bad credentials", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/login", url.Values{"username": {"someone"}, "password": {"pw"}})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "Invalid credentials", decodeOAuth2Error(t, resp).ErrorDescription)
		require.Empty(t, resp.Cookies())
	})

	t.Run("safe next redirects", func(t *testing.T) {
		c := srv.browser(t)
		resp, err := c.PostForm(srv.URL+"/login", url.Values{
			"username": {"PES1201800002"},
			"password": {"pw"},
			"next":     {"/oauth2/authorize?client_id=x"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/oauth2/authorize?client_id=x", resp.Header.Get("Location"))
	})

	t.Run("unsafe next is ignored", func(t *testing.T) {
		c := srv.browser(t)
		resp, err := c.PostForm(srv.URL+"/login", url.Values{
			"username": {"PES1201800002"},
			"password": {"pw"},
			"next":     {"//evil.example/"},
		})
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out authsdk.LoginResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.Equal(t, "pes1201800002", out.PESUPRN)
	})
}

func TestIsSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want bool
	}{
		{"/oauth2/authorize?x=1", true},
		{"/", true},
		{"", false},
		{"https://evil.example/", false},
		{"//evil.example/", false},
		{`/\evil.example`, false},
		{"oauth2/authorize", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, isSafeNext(tt.next), tt.next)
	}
}

func TestClientsAdmin(t *testing.T) {
	srv := newTestServer(t)

	t.Run("no session", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/clients")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("non admin", func(t *testing.T) {
		c := srv.browser(t)
		srv.login(t, c, "PES1201800002")
		resp, err := c.Get(srv.URL + "/v1/clients")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("list and delete", func(t *testing.T) {
		c := srv.browser(t)
		srv.login(t, c, "PES1201800001")
		reg := srv.registerClient(t, c, true, "profile:basic")
		require.Empty(t, reg.ClientSecret)
		require.Equal(t, "none", reg.TokenEndpointAuthMethod)

		resp, err := c.Get(srv.URL + "/v1/clients")
		require.NoError(t, err)
		var list authsdk.ListClientsResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		resp.Body.Close()
		require.Len(t, list.Clients, 1)
		require.Equal(t, reg.ClientID, list.Clients[0].ClientID)
		require.Empty(t, list.Clients[0].ClientSecret)

		del := func() int {
			req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/clients/"+reg.ClientID, nil)
			require.NoError(t, err)
			resp, err := c.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			return resp.StatusCode
		}
		require.Equal(t, http.StatusNoContent, del())
		require.Equal(t, http.StatusNotFound, del())
	})

	t.Run("invalid registration", func(t *testing.T) {
		c := srv.browser(t)
		srv.login(t, c, "PES1201800001")
		resp, err := c.Post(srv.URL+"/v1/clients", "application/json",
			strings.NewReader(`{"name":"x","redirect_uris":["ftp://x"],"scopes":["profile:basic"]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "invalid_request", decodeOAuth2Error(t, resp).Error)
	})
}

func TestSystemEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		var h authsdk.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "ok", h.Status)
		require.Equal(t, "test", h.Version)
	}

	resp, err := http.Get(srv.URL + "/oauth2/scopes")
	require.NoError(t, err)
	defer resp.Body.Close()
	var scopes authsdk.ScopesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scopes))
	require.Len(t, scopes.Scopes, 4)
	require.Equal(t, "profile:basic", scopes.Scopes[0].Name)
}

func TestReadyzReportsStoreFailure(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.router.store.Close())

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
