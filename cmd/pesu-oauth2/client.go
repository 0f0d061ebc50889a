package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

func newClientCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage registered OAuth2 clients",
	}
	cmd.PersistentFlags().String("owner", "", "PRN of the owning user (must have logged in once)")
	_ = cmd.MarkPersistentFlagRequired("owner")

	cmd.AddCommand(
		newClientCreateCommand(v),
		newClientListCommand(v),
		newClientDeleteCommand(v),
	)
	return cmd
}

// withClients resolves --owner and hands fn a registry bound to the store.
func withClients(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, clients *service.ClientService, ownerID string) error) error {
	prn, _ := cmd.Flags().GetString("owner")
	prn = strings.ToLower(strings.TrimSpace(prn))

	return withStore(cmd.Context(), v, func(st store.Store, logger *slog.Logger) error {
		ctx := slogx.WithContext(cmd.Context(), logger)

		owner, err := st.Users().GetUserByPRN(ctx, prn)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no user with PRN %q; they must log in once first", prn)
		}
		if err != nil {
			return err
		}

		clients := &service.ClientService{Store: st, Catalog: consent.Default()}
		return fn(ctx, clients, owner.ID)
	})
}

func newClientCreateCommand(v *viper.Viper) *cobra.Command {
	var (
		name      string
		redirects []string
		scopes    []string
		public    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client and print its credentials",
		Example: `  pesu-oauth2 client create --owner pes1201800001 --name Timetable \
    --redirect-uri https://app.example/callback --scope profile:basic`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(cmd, v, func(ctx context.Context, clients *service.ClientService, ownerID string) error {
				c, secret, err := clients.Register(ctx, service.RegisterClientInput{
					Name:         name,
					RedirectURIs: redirects,
					Scopes:       scopes,
					Public:       public,
					OwnerUserID:  ownerID,
				})
				if desc := service.Description(err); desc != "" {
					return fmt.Errorf("%s: %s", service.Code(err), desc)
				}
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(authsdk.ClientResponse{
					ClientID:                c.ID,
					ClientSecret:            secret,
					Name:                    c.Name,
					RedirectURIs:            c.RedirectURIs,
					Scopes:                  c.Scopes,
					TokenEndpointAuthMethod: c.AuthMethod,
					CreatedAt:               c.CreatedAt.Unix(),
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "Display name shown on the consent screen")
	f.StringSliceVar(&redirects, "redirect-uri", nil, "Allowed redirect URI (repeatable)")
	f.StringSliceVar(&scopes, "scope", nil, "Scope the client may request (repeatable)")
	f.BoolVar(&public, "public", false, "Register a public client authenticated by PKCE alone")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("redirect-uri")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}

func newClientListCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients owned by --owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(cmd, v, func(ctx context.Context, clients *service.ClientService, ownerID string) error {
				list, err := clients.List(ctx, ownerID)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CLIENT ID\tNAME\tAUTH\tSCOPES\tCREATED")
				for _, c := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						c.ID, c.Name, c.AuthMethod, strings.Join(c.Scopes, " "),
						c.CreatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
}

func newClientDeleteCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete a client with its codes and tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClients(cmd, v, func(ctx context.Context, clients *service.ClientService, ownerID string) error {
				if err := clients.Delete(ctx, args[0], ownerID); err != nil {
					if errors.Is(err, service.ErrClientNotFound) {
						return fmt.Errorf("client %q not found for this owner", args[0])
					}
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
}
