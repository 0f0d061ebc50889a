package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestS256Challenge(t *testing.T) {
	// RFC 7636 appendix B
	require.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		S256Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
	)
}

func TestVerifyPKCE(t *testing.T) {
	t.Parallel()

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := S256Challenge(verifier)

	tests := []struct {
		name      string
		challenge string
		method    string
		verifier  string
		want      bool
	}{
		{"matching S256", challenge, "S256", verifier, true},
		{"method is case insensitive", challenge, "s256", verifier, true},
		{"empty method defaults to S256", challenge, "", verifier, true},
		{"wrong verifier", challenge, "S256", "nope", false},
		{"missing verifier", challenge, "S256", "", false},
		{"plain is not accepted", verifier, "plain", verifier, false},
		{"no challenge stored", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, VerifyPKCE(tt.challenge, tt.method, tt.verifier))
		})
	}
}
