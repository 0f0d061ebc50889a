package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("first"), tag("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestCORS(t *testing.T) {
	t.Run("preflight short circuits", func(t *testing.T) {
		h := httpx.CORS([]string{"*"}, http.MethodPost)(okHandler)

		req := httptest.NewRequest(http.MethodOptions, "/oauth2/token", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		h := httpx.CORS([]string{"https://app.example"}, http.MethodGet)(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

		req.Header.Set("Origin", "https://evil.example")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestExtractBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":  "abc",
		"bearer  abc": "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		require.Equal(t, want, httpx.ExtractBearerToken(req), header)
	}
}

func TestParseParams(t *testing.T) {
	t.Run("form body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/?ignored=1", strings.NewReader("grant_type=refresh_token&refresh_token=r"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		v, err := httpx.ParseParams(req)
		require.NoError(t, err)
		require.Equal(t, "refresh_token", v.Get("grant_type"))
		require.Empty(t, v.Get("ignored"))
	})

	t.Run("json body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"grant_type":"authorization_code","n":3,"list":["a","b"],"x":null}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		v, err := httpx.ParseParams(req)
		require.NoError(t, err)
		require.Equal(t, "authorization_code", v.Get("grant_type"))
		require.Equal(t, "3", v.Get("n"))
		require.Equal(t, []string{"a", "b"}, v["list"])
		require.NotContains(t, v, "x")
	})

	t.Run("broken json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")

		_, err := httpx.ParseParams(req)
		require.Error(t, err)
	})
}
