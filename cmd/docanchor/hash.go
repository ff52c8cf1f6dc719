package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docanchor/internal/fingerprint"
)

type hashResult struct {
	Path  string `json:"path"`
	Hash  string `json:"hash"`
	Bytes int64  `json:"bytes"`
}

// newHashCmd prints fingerprints locally without contacting the server.
func newHashCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print document fingerprints",
		Args:  requireFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]hashResult, 0, len(args))
			for _, path := range args {
				result, err := hashFile(path)
				if err != nil {
					return err
				}
				results = append(results, result)
			}
			if *jsonOutput {
				return writeJSON(results)
			}
			for _, result := range results {
				if err := writePlain("%s  %s\n", result.Hash, result.Path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func hashFile(path string) (hashResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return hashResult{}, err
	}
	defer f.Close()

	hash, n, err := fingerprint.Reader(f)
	if err != nil {
		return hashResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return hashResult{Path: path, Hash: hash, Bytes: n}, nil
}
