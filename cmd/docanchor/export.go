package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"docanchor/internal/api"
	"docanchor/internal/config"
	"docanchor/internal/format"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		outputPath string
		formatName string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all index records as JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := format.ForName(formatName)
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				docs, err := client.List(cmd.Context())
				if err != nil {
					return err
				}

				var w io.Writer = os.Stdout
				if outputPath != "" {
					f, err := os.Create(outputPath)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return formatter.Write(w, docs)
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&formatName, "format", "json", "output format: json or yaml")

	return cmd
}
