package authsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOAuth2ErrorWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrInvalidGrant.WriteError(rec)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_grant", body["error"])
	require.NotEmpty(t, body["error_description"])
}

func TestWithDescriptionCopies(t *testing.T) {
	custom := ErrInvalidRequest.WithDescription("missing code")
	require.Equal(t, "missing code", custom.Description)
	require.NotEqual(t, "missing code", ErrInvalidRequest.Description)
}

func TestResourceErrorWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrInsufficientScope.WriteError(rec)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="insufficient_scope"`)
	require.JSONEq(t,
		`{"error":"insufficient_scope","message":"No data available with granted permissions"}`,
		rec.Body.String(),
	)
}

func TestDecodeError(t *testing.T) {
	err := decodeError(401, []byte(`{"error":"invalid_token","message":"expired"}`))
	var re *ResourceError
	require.ErrorAs(t, err, &re)
	require.Equal(t, "invalid_token", re.Code)

	err = decodeError(400, []byte(`{"error":"invalid_grant","error_description":"used"}`))
	var oe *OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, 400, oe.StatusCode)

	require.EqualError(t, decodeError(502, []byte("<html>")), "authsdk: unexpected status 502")
}
