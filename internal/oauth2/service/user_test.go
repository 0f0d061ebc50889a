package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/identity"
)

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("first login creates the owner keyed by lowercased prn", func(t *testing.T) {
		e.bridge.res = identity.Result{Success: true, Profile: domain.Profile{"prn": "PES2UG21CS100", "name": "Ravi"}}
		u, err := e.users.Login(ctx, "  PES2UG21CS100 ", "pw")
		require.NoError(t, err)
		require.Equal(t, "pes2ug21cs100", u.PESUPRN)
		require.Equal(t, "pes2ug21cs100", e.bridge.calls[len(e.bridge.calls)-1])
		require.False(t, e.users.IsAdmin(u))
	})

	t.Run("returning owner is merged", func(t *testing.T) {
		e.bridge.res = identity.Result{Success: true, Profile: domain.Profile{"prn": "PES2UG21CS100", "email": "r@pes.edu", "name": nil}}
		u, err := e.users.Login(ctx, "pes2ug21cs100", "pw")
		require.NoError(t, err)
		require.Equal(t, "Ravi", u.Profile["name"])
		require.Equal(t, "r@pes.edu", u.Profile["email"])

		stored, err := e.users.Get(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Profile, stored.Profile)
	})

	t.Run("username is the key when the profile has no prn", func(t *testing.T) {
		e.bridge.res = identity.Result{Success: true, Profile: domain.Profile{"name": "No PRN"}}
		u, err := e.users.Login(ctx, "SomeUser", "pw")
		require.NoError(t, err)
		require.Equal(t, "someuser", u.PESUPRN)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		e.bridge.res = identity.Result{Success: false, Error: "Invalid credentials"}
		_, err := e.users.Login(ctx, "x", "y")
		require.ErrorIs(t, err, ErrLoginFailed)
		require.Equal(t, "Invalid credentials", Description(err))
	})

	t.Run("bridge failure is not exposed", func(t *testing.T) {
		e.bridge.err = errors.New("dial tcp 10.0.0.1:443: i/o timeout")
		_, err := e.users.Login(ctx, "x", "y")
		require.ErrorIs(t, err, ErrLoginFailed)
		require.ErrorIs(t, err, ErrIdentityUnavailable)
		require.NotContains(t, Description(err), "10.0.0.1")
		e.bridge.err = nil
	})

	t.Run("missing credentials skip the bridge", func(t *testing.T) {
		calls := len(e.bridge.calls)
		_, err := e.users.Login(ctx, " ", "pw")
		require.ErrorIs(t, err, ErrLoginFailed)
		require.Len(t, e.bridge.calls, calls)
	})
}

func TestIsAdmin(t *testing.T) {
	e := newEnv(t)
	require.True(t, e.users.IsAdmin(e.owner(t)))
	require.False(t, e.users.IsAdmin(domain.User{PESUPRN: "pes9"}))
}
