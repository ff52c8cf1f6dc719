package main

import (
	"context"
	"errors"
	"net"

	"docanchor/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify DOCANCHOR_API_TOKEN and DOCANCHOR_ADMIN_TOKEN configuration.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly or reduce concurrent uploads.")
		case "failed_precondition":
			lines = append(lines, "hint: the ledger mirror may not have caught up yet; retry in a few seconds.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify DOCANCHOR_API_URL points to a docanchor server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, errMemoryLedgerNeedsServer) {
		lines = append(lines, "hint: start a long-running server first with: docanchor srv")
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase DOCANCHOR_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a docanchor server is running at DOCANCHOR_API_URL.",
			"hint: start local server manually with: docanchor srv",
			"hint: you can increase DOCANCHOR_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
