package main

import (
	"errors"
	"fmt"
	"os"

	"docanchor/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.TrustedProjectConfigPath != "" {
		fmt.Fprintf(os.Stderr, "warning: using trusted project config from %s\n", cfg.TrustedProjectConfigPath)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		for _, line := range formatCLIError(err) {
			fmt.Fprintln(os.Stderr, line)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates a document that failed verification (1) from an
// operational failure such as an unreachable server or ledger (2).
func exitCode(err error) int {
	if errors.Is(err, errVerifyFailed) {
		return 1
	}
	return 2
}
