package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// PKCEMethodS256 is the only code_challenge_method the server accepts.
const PKCEMethodS256 = "S256"

// S256Challenge derives the code_challenge for a code_verifier (RFC 7636 4.2).
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE reports whether verifier satisfies the stored challenge.
// An empty challenge means the code was not PKCE bound and always passes.
// A present challenge with an empty verifier or a non-S256 method fails.
func VerifyPKCE(challenge, method, verifier string) bool {
	if challenge == "" {
		return true
	}
	if verifier == "" {
		return false
	}
	if !strings.EqualFold(method, PKCEMethodS256) && method != "" {
		return false
	}
	return EqualStrings(S256Challenge(verifier), challenge)
}
