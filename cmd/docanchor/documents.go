package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docanchor/internal/api"
	"docanchor/internal/config"
)

// errVerifyFailed marks a verify run where at least one document was not genuine.
var errVerifyFailed = errors.New("one or more documents failed verification")

func newAnchorCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "anchor <file>...",
		Short: "Anchor documents on the ledger",
		Args:  requireFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				results := make([]api.DocumentResponse, 0, len(args))
				for _, path := range args {
					resp, err := sendFile(cmd.Context(), path, client.Upload)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					results = append(results, resp)
					if !*jsonOutput {
						if err := writePlain("anchored %s %s %s\n", resp.ID, resp.Hash, path); err != nil {
							return err
						}
					}
				}
				if *jsonOutput {
					return writeJSON(results)
				}
				return nil
			})
		},
	}
}

func newRevokeCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <file>",
		Short: "Revoke a previously anchored document",
		Args:  requireExactlyArgs(1, "exactly one file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return withClient(cfg, func(client *api.Client) error {
				resp, err := sendFile(cmd.Context(), path, client.Revoke)
				var soft *api.SoftError
				if errors.As(err, &soft) {
					if *jsonOutput {
						if werr := writeJSON(resp); werr != nil {
							return werr
						}
					}
					return fmt.Errorf("%s: %s", path, soft.Message)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("revoked %s %s %s\n", resp.ID, resp.Hash, path)
			})
		},
	}
}

func newVerifyCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Verify documents against the ledger",
		Args:  requireFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				failed := false
				results := make(map[string]api.VerifyResponse, len(args))
				for _, path := range args {
					resp, err := sendFile(cmd.Context(), path, client.Verify)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					results[path] = resp
					if !resp.VerifySuccess {
						failed = true
					}
					if *jsonOutput {
						continue
					}
					if resp.VerifySuccess {
						err = writePlain("genuine %s anchored %s UTC %s\n", resp.StoredHash, resp.Timestamp, path)
					} else {
						err = writePlain("%s %s %s (%s)\n", resp.Status, resp.UploadedHash, path, resp.Error)
					}
					if err != nil {
						return err
					}
				}
				if *jsonOutput {
					if err := writeJSON(results); err != nil {
						return err
					}
				}
				if failed {
					return errVerifyFailed
				}
				return nil
			})
		},
	}
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var hash, file string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed anchor and revoke records",
		Args:  requireExactlyArgs(0, "list takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hash != "" && file != "" {
				return fmt.Errorf("--hash and --file are mutually exclusive")
			}
			if file != "" {
				result, err := hashFile(file)
				if err != nil {
					return err
				}
				hash = result.Hash
			}
			return withClient(cfg, func(client *api.Client) error {
				var (
					docs []api.DocumentSummary
					err  error
				)
				if hash != "" {
					docs, err = client.History(cmd.Context(), hash)
				} else {
					docs, err = client.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(docs)
				}
				return writeDocumentList(docs)
			})
		},
	}
	cmd.Flags().StringVar(&hash, "hash", "", "only records for this fingerprint")
	cmd.Flags().StringVar(&file, "file", "", "only records for this file's fingerprint")
	return cmd
}

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete index records (the ledger is not changed)",
		Args:  requireRecordIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range args {
					if err := client.Delete(cmd.Context(), id); err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					if err := writePlain("deleted %s\n", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func sendFile[T any](ctx context.Context, path string, send func(context.Context, string, io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return send(ctx, filepath.Base(path), f)
}
