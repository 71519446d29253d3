package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanadevale/trailrace/internal/content"
	"github.com/stanadevale/trailrace/internal/server"
)

func seedCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load races, FAQs, program and sponsors into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			bundle, err := content.Default()
			if file != "" {
				data, rerr := os.ReadFile(file)
				if rerr != nil {
					return fmt.Errorf("reading %s: %w", file, rerr)
				}
				bundle, err = content.Parse(data)
			}
			if err != nil {
				return err
			}

			seeded, err := content.Seed(cmd.Context(), e.logger, e.store, bundle)
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(e.out, "races already present, nothing seeded")
				return nil
			}
			fmt.Fprintf(e.out, "seeded %d races, %d FAQs, %d program events, %d sponsors\n",
				len(bundle.Races), len(bundle.FAQs), len(bundle.Program), len(bundle.Sponsors))
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "YAML content file (default: built-in content)")
	return cmd
}

func adminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage organizer accounts",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an organizer account or reset its password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = e.cfg.AdminPassword
			}

			created, err := server.EnsureAdmin(cmd.Context(), e.store, username, password, time.Now())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(e.out, "created admin %q\n", username)
			} else {
				fmt.Fprintf(e.out, "reset password of admin %q\n", username)
			}
			return nil
		},
	}
	create.Flags().StringP("username", "u", "", "Username")
	create.Flags().StringP("password", "p", "", "Password, at least 8 characters (default from ADMIN_PASSWORD)")
	_ = create.MarkFlagRequired("username")

	cmd.AddCommand(create)
	return cmd
}
