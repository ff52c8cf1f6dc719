package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docanchor/internal/anchor"
	"docanchor/internal/config"
	"docanchor/internal/ledger"
	"docanchor/internal/server"
	"docanchor/internal/store"
)

// memoryOperator signs submissions on the in-process ledger.
const memoryOperator ledger.Identity = "0.0.2"

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the docanchor API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			if err := cfg.Ledger.Validate(); err != nil {
				return err
			}

			logger := slog.Default()

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			l, err := openLedger(cfg.Ledger, logger)
			if err != nil {
				return err
			}
			defer l.Close()

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			svc, err := anchor.NewService(l, st, anchor.Channels{
				Anchor: ledger.ChannelID(cfg.Ledger.AnchorTopicID),
				Revoke: ledger.ChannelID(cfg.Ledger.RevokeTopicID),
			}, logger)
			if err != nil {
				return err
			}

			srv := server.New(addr, svc, st, server.Options{
				Network:            cfg.Ledger.Network,
				MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
				MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
				AllowedMediaTypes:  cfg.Uploads.AllowedMediaTypes,
			}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}

// openLedger builds the ledger client selected by configuration.
func openLedger(cfg config.LedgerConfig, logger *slog.Logger) (ledger.Ledger, error) {
	if cfg.IsMemory() {
		logger.Warn("using in-memory ledger; messages are lost when the server exits")
		return ledger.NewMemory(memoryOperator,
			ledger.ChannelID(cfg.AnchorTopicID),
			ledger.ChannelID(cfg.RevokeTopicID),
		), nil
	}

	submitter, err := ledger.NewHederaSubmitter(ledger.HederaConfig{
		Network:           cfg.Network,
		AccountID:         cfg.AccountID,
		PrivateKey:        cfg.PrivateKey,
		MaxTransactionFee: cfg.MaxTransactionFee,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger submitter: %w", err)
	}

	mirrorURL := cfg.MirrorURL
	if mirrorURL == "" {
		mirrorURL, err = ledger.MirrorURLForNetwork(cfg.Network)
		if err != nil {
			_ = submitter.Close()
			return nil, err
		}
	}
	reader, err := ledger.NewMirrorReader(mirrorURL, ledger.MirrorOptions{
		RetryAttempts: cfg.RetrieveAttempts,
		RetryBackoff:  cfg.Backoff(),
		Logger:        logger.With("component", "mirror"),
	})
	if err != nil {
		_ = submitter.Close()
		return nil, fmt.Errorf("ledger reader: %w", err)
	}

	logger.Info("ledger configured", "network", cfg.Network, "operator", submitter.Operator(), "mirror", mirrorURL)
	return ledger.NewClient(submitter, reader), nil
}
