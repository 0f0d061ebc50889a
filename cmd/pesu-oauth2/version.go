package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/app"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pesu-oauth2 version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "pesu-oauth2 %s\n", app.BuildVersion)
			return err
		},
	}
}
