package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"docanchor/internal/api"
	"docanchor/internal/config"
)

const (
	serverStartTimeout = 5 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

// errMemoryLedgerNeedsServer is returned instead of auto-starting a server on
// the in-process ledger, whose messages would vanish with the child process.
var errMemoryLedgerNeedsServer = errors.New("no server running and ledger.network=memory cannot be auto-started")

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	cleanup, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	client := api.NewClient(cfg.APIURL)
	return fn(client)
}

func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := client.Ping(ctx); err == nil {
		return nil, nil
	}
	if cfg.Ledger.IsMemory() {
		return nil, errMemoryLedgerNeedsServer
	}

	cmd, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}

	if err := waitForServer(client, serverStartTimeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	cleanup := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}

	return cleanup, nil
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := serverCommand(exe, cfg)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// serverCommand builds the child `srv` invocation. The resolved config is
// passed through env so the child anchors to the same topics and index.
func serverCommand(exe string, cfg *config.Config) *exec.Cmd {
	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(), cfg.ServerEnv()...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			// If port is in use but API is not ours, surface the error.
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
