package app

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	require.Equal(t, 10*time.Minute, cfg.CodeTTL)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Zero(t, cfg.HousekeepingInterval)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.False(t, cfg.SessionSecure)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("ADMIN_USERS", "PES1201800001, pes1201800002")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("REFRESH_REUSE_REVOKES_ALL", "true")

	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)
	require.True(t, cfg.SessionSecure)
	require.Equal(t, []string{"pes1201800001", "pes1201800002"}, cfg.AdminUsers)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.True(t, cfg.RefreshReuseRevokesAll)

	t.Setenv("SESSION_SECURE", "false")
	cfg, err = LoadConfig(NewViper())
	require.NoError(t, err)
	require.False(t, cfg.SessionSecure)
}

func TestLoadConfigDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	_, err := LoadConfig(NewViper())
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/oauth2")
	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)

	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err = LoadConfig(NewViper())
	require.ErrorContains(t, err, "unknown DATABASE_DRIVER")
}

func TestBindFlagsOverridesEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")

	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.String("unrelated", "", "")
	require.NoError(t, BindFlags(v, fs))

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)

	require.NoError(t, fs.Parse([]string{"--port", "9100"}))
	cfg, err = LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Port)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig(NewViper())
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorContains(t, err, "SESSION_SECRET")
	require.ErrorContains(t, err, "IDENTITY_BRIDGE_URL")

	cfg.SessionSecret = strings.Repeat("s", 32)
	cfg.IdentityBridgeURL = "http://bridge.internal/authenticate"
	require.NoError(t, cfg.Validate())

	cfg.Port = 0
	require.ErrorContains(t, cfg.Validate(), "PORT")
}
