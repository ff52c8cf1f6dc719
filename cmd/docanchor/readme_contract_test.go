package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"docanchor/internal/config"
)

func TestReadmeSupportedConfigKeysMatchAllowedKeys(t *testing.T) {
	readme := loadReadme(t)

	documented, err := parseDocumentedConfigKeys(readme)
	if err != nil {
		t.Fatalf("parse documented config keys: %v", err)
	}

	allowed := uniqueSorted(config.AllowedKeys())
	if !slices.Equal(documented, allowed) {
		t.Fatalf("README supported config keys mismatch\ndocumented: %v\nallowed:    %v", documented, allowed)
	}
}

func TestReadmeCommandSurfaceMatchesCLILeafCommands(t *testing.T) {
	readme := loadReadme(t)

	documented, err := parseDocumentedCommandPaths(readme)
	if err != nil {
		t.Fatalf("parse documented commands: %v", err)
	}

	cfg := config.Default()
	actual := collectLeafCommandPaths(newRootCmd(&cfg))

	missingInReadme := diff(actual, documented)
	extraInReadme := diff(documented, actual)
	if len(missingInReadme) > 0 || len(extraInReadme) > 0 {
		t.Fatalf("README command surface mismatch\nmissing in README: %v\nextra in README:   %v", missingInReadme, extraInReadme)
	}
}

func TestReadmeRuntimeEnvironmentKeysDocumented(t *testing.T) {
	documented := regexp.MustCompile(`DOCANCHOR_[A-Z0-9_]+`).FindAllString(loadReadme(t), -1)

	required := []string{
		"DOCANCHOR_API_URL",
		"DOCANCHOR_DB",
		"DOCANCHOR_HTTP_TIMEOUT",
		"DOCANCHOR_LOG_LEVEL",
		"DOCANCHOR_LOG_FORMAT",
		"DOCANCHOR_CONFIG_DIR",
		"DOCANCHOR_TRUST_PROJECT_CONFIG",
		"DOCANCHOR_LEDGER_NETWORK",
		"DOCANCHOR_MIRROR_URL",
		"DOCANCHOR_ACCOUNT_ID",
		"DOCANCHOR_PRIVATE_KEY",
		"DOCANCHOR_ANCHOR_TOPIC_ID",
		"DOCANCHOR_REVOKE_TOPIC_ID",
		"DOCANCHOR_UPLOAD_ALLOWED_MEDIA_TYPES",
		"DOCANCHOR_DB_MAX_OPEN_CONNS",
		"DOCANCHOR_DB_CONN_MAX_LIFETIME",
		"DOCANCHOR_API_TOKEN",
		"DOCANCHOR_ADMIN_TOKEN",
		"DOCANCHOR_ALLOW_REMOTE",
	}

	if missing := diff(required, documented); len(missing) > 0 {
		t.Fatalf("README missing runtime environment keys: %v", missing)
	}
}

func loadReadme(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	data, err := os.ReadFile(filepath.Join(repoRoot, "README.md"))
	if err != nil {
		t.Fatalf("read README.md: %v", err)
	}
	return string(data)
}

func parseDocumentedConfigKeys(readme string) ([]string, error) {
	_, section, ok := strings.Cut(readme, "Supported config keys:")
	if !ok {
		return nil, fmt.Errorf("missing 'Supported config keys:' section")
	}

	var keys []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "- ") {
			if len(keys) > 0 {
				break
			}
			continue
		}
		parts := strings.SplitN(line, "`", 3)
		if len(parts) < 3 || parts[1] == "" {
			return nil, fmt.Errorf("config key bullet missing backticks: %q", line)
		}
		keys = append(keys, parts[1])
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no config keys found")
	}
	return uniqueSorted(keys), nil
}

func parseDocumentedCommandPaths(readme string) ([]string, error) {
	_, section, ok := strings.Cut(readme, "## Commands")
	if !ok {
		return nil, fmt.Errorf("missing '## Commands' section")
	}
	_, fenced, ok := strings.Cut(section, "```bash")
	if !ok {
		return nil, fmt.Errorf("missing bash code fence in Commands section")
	}
	block, _, ok := strings.Cut(fenced, "```")
	if !ok {
		return nil, fmt.Errorf("unterminated Commands code fence")
	}

	var paths []string
	for _, line := range strings.Split(block, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "docanchor" {
			continue
		}
		var parts []string
		for _, token := range fields[1:] {
			if strings.ContainsAny(token[:1], "#<[-") {
				break
			}
			parts = append(parts, token)
		}
		if len(parts) > 0 {
			paths = append(paths, strings.Join(parts, " "))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no command paths parsed from README Commands section")
	}
	return uniqueSorted(paths), nil
}

func collectLeafCommandPaths(root *cobra.Command) []string {
	var paths []string

	var walk func(cmd *cobra.Command, prefix []string)
	walk = func(cmd *cobra.Command, prefix []string) {
		var children []*cobra.Command
		for _, child := range cmd.Commands() {
			if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
				continue
			}
			children = append(children, child)
		}
		if len(children) == 0 {
			if len(prefix) > 0 {
				paths = append(paths, strings.Join(prefix, " "))
			}
			return
		}
		for _, child := range children {
			walk(child, append(slices.Clone(prefix), child.Name()))
		}
	}

	walk(root, nil)
	return uniqueSorted(paths)
}

func diff(a, b []string) []string {
	setB := make(map[string]struct{}, len(b))
	for _, item := range b {
		setB[item] = struct{}{}
	}
	var out []string
	for _, item := range a {
		if _, ok := setB[item]; !ok {
			out = append(out, item)
		}
	}
	return uniqueSorted(out)
}

func uniqueSorted(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
