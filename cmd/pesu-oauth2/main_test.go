package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/app"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/drivers/sqlite"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/idx"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "pesu-oauth2 "+app.BuildVersion+"\n", out)
}

func TestClientCommands(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "oauth2.db")
	common := []string{
		"--log-level", "error",
		"--database-file", dbFile,
		"--pepper-file", filepath.Join(dir, "pepper"),
	}
	run := func(args ...string) (string, error) {
		return execute(t, append(args, common...)...)
	}

	_, err := run("migrate")
	require.NoError(t, err)
	require.FileExists(t, dbFile)

	_, err = run("client", "list", "--owner", "PES1201800001")
	require.ErrorContains(t, err, "must log in once first")

	st, err := sqlite.NewStore(sqlite.FileDSN(dbFile))
	require.NoError(t, err)
	ts := time.Now().UTC()
	require.NoError(t, st.Users().CreateUser(context.Background(), domain.User{
		ID:        idx.New().String(),
		PESUPRN:   "pes1201800001",
		Profile:   domain.Profile{"name": "Asha Rao"},
		CreatedAt: ts,
		UpdatedAt: ts,
	}))
	require.NoError(t, st.Close())

	out, err := run("client", "create",
		"--owner", "PES1201800001",
		"--name", "Timetable",
		"--redirect-uri", "https://app.example/callback",
		"--scope", "profile:basic",
	)
	require.NoError(t, err)

	var created authsdk.ClientResponse
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotEmpty(t, created.ClientID)
	require.NotEmpty(t, created.ClientSecret)
	require.Equal(t, domain.AuthMethodClientSecretPost, created.TokenEndpointAuthMethod)

	_, err = run("client", "create",
		"--owner", "PES1201800001",
		"--name", "Broken",
		"--redirect-uri", "https://app.example/callback",
		"--scope", "profile:nope",
	)
	require.ErrorContains(t, err, "invalid_scope")

	out, err = run("client", "list", "--owner", "pes1201800001")
	require.NoError(t, err)
	require.Contains(t, out, created.ClientID)
	require.Contains(t, out, "Timetable")

	_, err = run("client", "delete", created.ClientID, "--owner", "pes1201800001")
	require.NoError(t, err)

	_, err = run("client", "delete", created.ClientID, "--owner", "pes1201800001")
	require.ErrorContains(t, err, "not found")

	out, err = run("housekeep")
	require.NoError(t, err)
	require.Contains(t, out, "purged 0 authorization codes")
}
