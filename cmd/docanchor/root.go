package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docanchor/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "docanchor",
		Short:         "Anchor document fingerprints to a public ledger and verify them later",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newAnchorCmd(cfg, &jsonOutput),
		newRevokeCmd(cfg, &jsonOutput),
		newVerifyCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newDeleteCmd(cfg),
		newHashCmd(&jsonOutput),
		newExportCmd(cfg),
		newInfoCmd(cfg, &jsonOutput),
		newAdminCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}
