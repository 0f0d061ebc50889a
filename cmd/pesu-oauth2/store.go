package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/app"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
)

// withStore opens the configured store with migrations applied and closes
// it once fn returns.
func withStore(ctx context.Context, v *viper.Viper, fn func(st store.Store, logger *slog.Logger) error) error {
	cfg, err := app.LoadConfig(v)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	return fn(st, logger)
}

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), v, func(store.Store, *slog.Logger) error {
				return nil
			})
		},
	}
}

func newHousekeepCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "housekeep",
		Short: "Purge expired codes, consent tickets and tokens once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), v, func(st store.Store, logger *slog.Logger) error {
				hk := service.NewHousekeepingService(st, logger, 0)
				res, err := hk.Purge(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"purged %d authorization codes, %d consent requests, %d tokens\n",
					res.AuthorizationCodes, res.ConsentRequests, res.Tokens)
				return err
			})
		},
	}
}
