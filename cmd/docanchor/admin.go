package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docanchor/internal/api"
	"docanchor/internal/auth"
	"docanchor/internal/config"
)

func newAdminCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminReconcileCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminCreateTopicCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminHashTokenCmd())
	return cmd
}

func newAdminReconcileCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild missing index records from the ledger channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.AdminReconcile(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				for _, ch := range resp.Channels {
					if err := writePlain("%s (%s): scanned=%d inserted=%d existing=%d ignored=%d\n",
						ch.TopicID, ch.Kind, ch.Scanned, ch.Inserted, ch.Existing, ch.Ignored); err != nil {
						return err
					}
				}
				return writePlain("restored %d records\n", resp.Inserted)
			})
		},
	}
}

func newAdminCreateTopicCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "create-topic",
		Short: "Provision a new ledger topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.AdminCreateTopic(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.TopicID)
			})
		},
	}
}

func newAdminHashTokenCmd() *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print a bcrypt hash to configure as DOCANCHOR_ADMIN_TOKEN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			switch {
			case generate && len(args) > 0:
				return fmt.Errorf("pass a token or --generate, not both")
			case generate:
				generated, err := auth.GenerateToken()
				if err != nil {
					return err
				}
				token = generated
				if err := writePlain("token: %s\n", token); err != nil {
					return err
				}
			case len(args) == 1:
				token = args[0]
			default:
				return fmt.Errorf("token is required (or use --generate)")
			}

			hashed, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if generate {
				return writePlain("hash: %s\n", hashed)
			}
			return writePlain("%s\n", hashed)
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "generate a random token and print it with its hash")
	return cmd
}
