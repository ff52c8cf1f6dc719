package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docanchor/internal/store"
)

func requireAtLeastArgs(min int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.New(message)
		}
		return nil
	}
}

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

func requireFiles(cmd *cobra.Command, args []string) error {
	return requireAtLeastArgs(1, "at least one file is required")(cmd, args)
}

// requireRecordIDs rejects malformed index ids before any server round trip.
func requireRecordIDs(cmd *cobra.Command, args []string) error {
	if err := requireAtLeastArgs(1, "id is required")(cmd, args); err != nil {
		return err
	}
	for _, id := range args {
		if !store.ValidRecordID(id) {
			return fmt.Errorf("invalid record id %q (expected ar-xxxxxxxx or rv-xxxxxxxx)", id)
		}
	}
	return nil
}
