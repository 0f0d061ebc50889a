package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenActivityWindows(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	tok := Token{IssuedAt: issued, ExpiresIn: time.Hour}

	require.True(t, tok.IsAccessTokenActive(issued.Add(59*time.Minute)))
	require.False(t, tok.IsAccessTokenActive(issued.Add(time.Hour)))

	require.True(t, tok.IsRefreshTokenActive(issued.Add(119*time.Minute)))
	require.False(t, tok.IsRefreshTokenActive(issued.Add(2*time.Hour)))

	tok.Revoked = true
	require.False(t, tok.IsAccessTokenActive(issued))
	require.False(t, tok.IsRefreshTokenActive(issued))
}

func TestGrantedFieldsCloneIsDeep(t *testing.T) {
	orig := GrantedFields{"profile:basic": {"name"}}
	cp := orig.Clone()
	cp["profile:basic"][0] = "prn"
	cp["profile:contact"] = []string{"email"}

	require.Equal(t, GrantedFields{"profile:basic": {"name"}}, orig)
	require.True(t, orig.Allows("profile:basic", "name"))
	require.False(t, orig.Allows("profile:basic", "prn"))
}

func TestGrantedFieldsMarshalsEmptyScopes(t *testing.T) {
	b, err := json.Marshal(GrantedFields{"profile:photo": nil})
	require.NoError(t, err)
	require.JSONEq(t, `{"profile:photo":[]}`, string(b))
}

func TestProfileMerge(t *testing.T) {
	old := Profile{"name": "Old Name", "phone": "999", "srn": "PES1UG20CS001"}
	merged := old.Merge(Profile{"name": "New Name", "phone": nil, "email": "a@pes.edu"})

	require.Equal(t, Profile{
		"name":  "New Name",
		"phone": "999",
		"srn":   "PES1UG20CS001",
		"email": "a@pes.edu",
	}, merged)
	require.Equal(t, "Old Name", old["name"], "merge must not mutate the receiver")
}

func TestClientPredicates(t *testing.T) {
	c := Client{
		RedirectURIs: []string{"https://app.example/cb"},
		Scopes:       []string{"profile:basic"},
		AuthMethod:   AuthMethodClientSecretPost,
		SecretHash:   "$argon2id$...",
	}

	require.False(t, c.IsPublic())
	require.True(t, c.HasRedirectURI("https://app.example/cb"))
	require.False(t, c.HasRedirectURI("https://app.example/cb/"))
	require.False(t, c.HasRedirectURI("https://APP.example/cb"))
	require.True(t, c.AllowsScope("profile:basic"))
	require.False(t, c.AllowsScope("profile:photo"))

	c.AuthMethod = AuthMethodNone
	require.True(t, c.IsPublic())
}
