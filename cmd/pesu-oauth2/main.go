package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/app"
)

func main() {
	ctx := withSignalCancel(context.Background())
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := app.NewViper()

	cmd := &cobra.Command{
		Use:           "pesu-oauth2",
		Short:         "OAuth2 identity provider delegating logins to PESU Academy",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.BindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(v)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("env", "dev", "Environment (dev, staging, prod)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "json", "Log format (json, text)")
	pf.String("database-driver", app.DriverSQLite, "Database driver (sqlite, postgres)")
	pf.String("database-file", "oauth2.db", "SQLite database file")
	pf.String("database-url", "", "Postgres connection string")
	pf.String("pepper-file", "pepper", "File holding the client secret pepper")

	cmd.AddCommand(
		newServeCommand(v),
		newMigrateCommand(v),
		newClientCommand(v),
		newHousekeepCommand(v),
		newVersionCommand(),
	)
	return cmd
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(v)
		},
	}

	f := cmd.Flags()
	f.Int("port", 8080, "HTTP server port")
	f.String("session-secret", "", "HS256 key for the owner session cookie")
	f.String("identity-bridge-url", "", "PESU identity bridge endpoint")
	f.String("admin-users", "", "Comma separated PRNs allowed to manage clients")
	f.String("login-url", "/login", "Login page receiving ?next=")
	f.Duration("housekeeping-interval", 0, "Background purge interval, 0 disables it")
	return cmd
}

func runServe(v *viper.Viper) error {
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return err
	}
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	return application.Run()
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
