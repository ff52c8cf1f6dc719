package main

import (
	"sort"

	"github.com/spf13/cobra"

	"docanchor/internal/api"
	"docanchor/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show ledger channels and index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("db_path: %s\n", cfg.DBPath)
				_ = writePlain("network: %s\n", resp.Network)
				_ = writePlain("operator: %s\n", resp.Operator)
				_ = writePlain("anchor_topic_id: %s\n", resp.AnchorTopicID)
				_ = writePlain("revoke_topic_id: %s\n", resp.RevokeTopicID)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("total_records: %d\n", resp.TotalRecords)

				kinds := make([]string, 0, len(resp.RecordCounts))
				for kind := range resp.RecordCounts {
					kinds = append(kinds, kind)
				}
				sort.Strings(kinds)
				for _, kind := range kinds {
					_ = writePlain("  %s: %d\n", kind, resp.RecordCounts[kind])
				}
				return nil
			})
		},
	}
}
