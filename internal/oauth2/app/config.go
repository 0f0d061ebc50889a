package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Background purge interval, 0 disables it (default: 0)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite database file (default: ./oauth2.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver
	PepperFile     string // File holding the client secret pepper (default: ./pepper)

	SessionSecret string        // Required: HS256 key for the owner session cookie, at least 32 bytes
	SessionTTL    time.Duration // Owner session lifetime (default: 12h)
	SessionSecure bool          // Mark the session cookie Secure (default: true outside dev)
	AdminUsers    []string      // PRNs allowed to manage clients, lowercased
	LoginURL      string        // Login page receiving ?next= (default: /login)
	CORSOrigins   []string      // Origins allowed on the token and resource endpoints (default: *)

	IdentityBridgeURL     string        // Required: PESU identity bridge endpoint
	IdentityBridgeTimeout time.Duration // Per call timeout (default: 10s)

	CodeTTL                time.Duration // Authorization code lifetime (default: 10m)
	ConsentTTL             time.Duration // Consent ticket lifetime (default: 10m)
	AccessTokenTTL         time.Duration // Access token lifetime; refresh lives twice as long (default: 1h)
	RefreshReuseRevokesAll bool          // Revoke every token of the pair on refresh replay (default: false)
}

// Keys double as environment variable names: "database-driver" is read
// from DATABASE_DRIVER.
var defaults = map[string]any{
	"env":                       "dev",
	"log-level":                 "info",
	"log-format":                "json",
	"port":                      8080,
	"shutdown-grace-period":     10 * time.Second,
	"housekeeping-interval":     time.Duration(0),
	"database-driver":           DriverSQLite,
	"database-file":             "oauth2.db",
	"database-url":              "",
	"pepper-file":               "pepper",
	"session-secret":            "",
	"session-ttl":               12 * time.Hour,
	"session-secure":            "",
	"admin-users":               "",
	"login-url":                 "/login",
	"cors-origins":              "*",
	"identity-bridge-url":       "",
	"identity-bridge-timeout":   10 * time.Second,
	"code-ttl":                  10 * time.Minute,
	"consent-ttl":               10 * time.Minute,
	"access-token-ttl":          time.Hour,
	"refresh-reuse-revokes-all": false,
}

// NewViper returns a viper instance carrying the defaults and reading the
// environment.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of fs whose name is a config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if _, ok := defaults[f.Name]; !ok || err != nil {
			return
		}
		err = v.BindPFlag(f.Name, f)
	})
	return err
}

// LoadConfig reads Config from v. It only checks what every command needs;
// Validate covers the server.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:                    strings.ToLower(v.GetString("env")),
		LogLevel:               v.GetString("log-level"),
		LogFormat:              v.GetString("log-format"),
		Port:                   v.GetInt("port"),
		ShutdownGracePeriod:    v.GetDuration("shutdown-grace-period"),
		HousekeepingInterval:   v.GetDuration("housekeeping-interval"),
		DatabaseDriver:         strings.ToLower(strings.TrimSpace(v.GetString("database-driver"))),
		DatabaseFile:           v.GetString("database-file"),
		DatabaseURL:            v.GetString("database-url"),
		PepperFile:             v.GetString("pepper-file"),
		SessionSecret:          v.GetString("session-secret"),
		SessionTTL:             v.GetDuration("session-ttl"),
		AdminUsers:             splitList(v.GetString("admin-users"), true),
		LoginURL:               v.GetString("login-url"),
		CORSOrigins:            splitList(v.GetString("cors-origins"), false),
		IdentityBridgeURL:      v.GetString("identity-bridge-url"),
		IdentityBridgeTimeout:  v.GetDuration("identity-bridge-timeout"),
		CodeTTL:                v.GetDuration("code-ttl"),
		ConsentTTL:             v.GetDuration("consent-ttl"),
		AccessTokenTTL:         v.GetDuration("access-token-ttl"),
		RefreshReuseRevokesAll: v.GetBool("refresh-reuse-revokes-all"),
	}

	cfg.SessionSecure = cfg.Env != "dev"
	if raw := strings.TrimSpace(v.GetString("session-secure")); raw != "" {
		cfg.SessionSecure = v.GetBool("session-secure")
	}

	switch cfg.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return cfg, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}

// Validate checks the settings only the HTTP server depends on.
func (c Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.IdentityBridgeURL == "" {
		errs = append(errs, errors.New("IDENTITY_BRIDGE_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	return errors.Join(errs...)
}

// splitList parses a comma or whitespace separated list.
func splitList(raw string, lower bool) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if lower {
		for i, f := range fields {
			fields[i] = strings.ToLower(f)
		}
	}
	return fields
}
