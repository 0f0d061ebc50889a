package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("s3cret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
	require.Len(t, strings.Split(hash, "$"), 6)

	again, err := HashSecret("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salt must differ per hash")
}

func TestVerifySecret(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("correct horse")
	require.NoError(t, err)

	t.Run("accepts the original secret", func(t *testing.T) {
		require.NoError(t, VerifySecret("correct horse", hash))
	})

	t.Run("rejects a different secret", func(t *testing.T) {
		require.ErrorIs(t, VerifySecret("correct horsf", hash), ErrSecretMismatch)
		require.ErrorIs(t, VerifySecret("", hash), ErrSecretMismatch)
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"plaintext",
			"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=1,t=1,p=1$!!$aGFzaA",
		} {
			require.ErrorIs(t, VerifySecret("x", bad), ErrMalformedHash, bad)
		}
	})
}

func TestLoadPepper(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "nested", "pepper")

	require.NoError(t, LoadPepper(file))
	first := GetPepper()
	require.NotEmpty(t, first)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, first, string(raw))

	require.NoError(t, LoadPepper(file))
	require.Equal(t, first, GetPepper(), "existing pepper file must be reused")
}
