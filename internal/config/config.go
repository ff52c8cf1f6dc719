package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7341"
	DefaultDBFileName = ".docanchor.db"
	DefaultLogLevel   = "info"

	DefaultLedgerNetwork           = "testnet"
	DefaultMaxTransactionFee       = 2.0
	DefaultRetrieveAttempts        = 4
	DefaultRetrieveBackoff         = "500ms"
	MaxRetrieveAttempts            = 10
	DefaultUploadMaxBytes    int64 = 50 * 1024 * 1024
	DefaultUploadMemory      int64 = 8 * 1024 * 1024

	// MemoryNetwork selects the in-process ledger for local development.
	MemoryNetwork       = "memory"
	MemoryAnchorTopicID = "0.0.1001"
	MemoryRevokeTopicID = "0.0.1002"

	configFileName           = ".docanchor.toml"
	configDirEnvKey          = "DOCANCHOR_CONFIG_DIR"
	trustProjectConfigEnvKey = "DOCANCHOR_TRUST_PROJECT_CONFIG"

	apiURLEnvKey        = "DOCANCHOR_API_URL"
	dbPathEnvKey        = "DOCANCHOR_DB"
	logLevelEnvKey      = "DOCANCHOR_LOG_LEVEL"
	networkEnvKey       = "DOCANCHOR_LEDGER_NETWORK"
	mirrorURLEnvKey     = "DOCANCHOR_MIRROR_URL"
	accountIDEnvKey     = "DOCANCHOR_ACCOUNT_ID"
	privateKeyEnvKey    = "DOCANCHOR_PRIVATE_KEY"
	anchorTopicEnvKey   = "DOCANCHOR_ANCHOR_TOPIC_ID"
	revokeTopicEnvKey   = "DOCANCHOR_REVOKE_TOPIC_ID"
	uploadMediaEnvKey   = "DOCANCHOR_UPLOAD_ALLOWED_MEDIA_TYPES"
	redactedPlaceholder = "[redacted]"
)

// LedgerConfig selects the ledger network and the operator account.
type LedgerConfig struct {
	Network           string  `toml:"network"`
	MirrorURL         string  `toml:"mirror_url"`
	AccountID         string  `toml:"account_id"`
	PrivateKey        string  `toml:"private_key"`
	AnchorTopicID     string  `toml:"anchor_topic_id"`
	RevokeTopicID     string  `toml:"revoke_topic_id"`
	MaxTransactionFee float64 `toml:"max_transaction_fee"`
	RetrieveAttempts  int     `toml:"retrieve_attempts"`
	RetrieveBackoff   string  `toml:"retrieve_backoff"`
}

// UploadConfig bounds document uploads.
type UploadConfig struct {
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	AllowedMediaTypes  []string `toml:"allowed_media_types"`
}

// Config defines runtime configuration for docanchor.
type Config struct {
	APIURL                   string       `toml:"api_url"`
	DBPath                   string       `toml:"db_path"`
	LogLevel                 string       `toml:"log_level"`
	Ledger                   LedgerConfig `toml:"ledger"`
	Uploads                  UploadConfig `toml:"uploads"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Ledger: LedgerConfig{
			Network:           DefaultLedgerNetwork,
			MaxTransactionFee: DefaultMaxTransactionFee,
			RetrieveAttempts:  DefaultRetrieveAttempts,
			RetrieveBackoff:   DefaultRetrieveBackoff,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultUploadMaxBytes,
			MultipartMaxMemory: DefaultUploadMemory,
		},
	}
}

// IsMemory reports whether the in-process ledger is selected.
func (l LedgerConfig) IsMemory() bool {
	return strings.EqualFold(strings.TrimSpace(l.Network), MemoryNetwork)
}

// Backoff returns the parsed retrieve backoff, falling back to the default.
func (l LedgerConfig) Backoff() time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(l.RetrieveBackoff)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultRetrieveBackoff)
	return d
}

// Validate checks that everything needed to reach the ledger is present.
func (l LedgerConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(l.AnchorTopicID) == "" {
		missing = append(missing, "ledger.anchor_topic_id")
	}
	if strings.TrimSpace(l.RevokeTopicID) == "" {
		missing = append(missing, "ledger.revoke_topic_id")
	}
	if !l.IsMemory() {
		if strings.TrimSpace(l.AccountID) == "" {
			missing = append(missing, "ledger.account_id")
		}
		if strings.TrimSpace(l.PrivateKey) == "" {
			missing = append(missing, "ledger.private_key")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing ledger configuration: %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(l.AnchorTopicID) == strings.TrimSpace(l.RevokeTopicID) {
		return fmt.Errorf("ledger.anchor_topic_id and ledger.revoke_topic_id must differ")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"ledger.network",
	"ledger.mirror_url",
	"ledger.account_id",
	"ledger.private_key",
	"ledger.anchor_topic_id",
	"ledger.revoke_topic_id",
	"ledger.max_transaction_fee",
	"ledger.retrieve_attempts",
	"ledger.retrieve_backoff",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"uploads.allowed_media_types",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsSecretKey reports whether a key's value must never be printed.
func IsSecretKey(key string) bool {
	return key == "ledger.private_key"
}

// Get returns the value of a config key. Secret values are redacted.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "ledger.network":
		return c.Ledger.Network, nil
	case "ledger.mirror_url":
		return c.Ledger.MirrorURL, nil
	case "ledger.account_id":
		return c.Ledger.AccountID, nil
	case "ledger.private_key":
		if strings.TrimSpace(c.Ledger.PrivateKey) == "" {
			return "", nil
		}
		return redactedPlaceholder, nil
	case "ledger.anchor_topic_id":
		return c.Ledger.AnchorTopicID, nil
	case "ledger.revoke_topic_id":
		return c.Ledger.RevokeTopicID, nil
	case "ledger.max_transaction_fee":
		return strconv.FormatFloat(c.Ledger.MaxTransactionFee, 'f', -1, 64), nil
	case "ledger.retrieve_attempts":
		return strconv.Itoa(c.Ledger.RetrieveAttempts), nil
	case "ledger.retrieve_backoff":
		return c.Ledger.RetrieveBackoff, nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.allowed_media_types":
		return strings.Join(c.Uploads.AllowedMediaTypes, ","), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// The file may hold the operator key.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// ServerEnv renders the resolved settings a spawned `srv` process needs, so it
// serves the same index, channels and operator as the invoking command.
func (c *Config) ServerEnv() []string {
	env := []string{
		dbPathEnvKey + "=" + c.DBPath,
		apiURLEnvKey + "=" + c.APIURL,
		networkEnvKey + "=" + c.Ledger.Network,
	}
	optional := []struct {
		key   string
		value string
	}{
		{mirrorURLEnvKey, c.Ledger.MirrorURL},
		{accountIDEnvKey, c.Ledger.AccountID},
		{privateKeyEnvKey, c.Ledger.PrivateKey},
		{anchorTopicEnvKey, c.Ledger.AnchorTopicID},
		{revokeTopicEnvKey, c.Ledger.RevokeTopicID},
		{uploadMediaEnvKey, strings.Join(c.Uploads.AllowedMediaTypes, ",")},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.value) != "" {
			env = append(env, o.key+"="+o.value)
		}
	}
	return env
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	applyEnv(&cfg)
	cfg.normalizeDefaults()

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{apiURLEnvKey, &cfg.APIURL},
		{dbPathEnvKey, &cfg.DBPath},
		{logLevelEnvKey, &cfg.LogLevel},
		{networkEnvKey, &cfg.Ledger.Network},
		{mirrorURLEnvKey, &cfg.Ledger.MirrorURL},
		{accountIDEnvKey, &cfg.Ledger.AccountID},
		{privateKeyEnvKey, &cfg.Ledger.PrivateKey},
		{anchorTopicEnvKey, &cfg.Ledger.AnchorTopicID},
		{revokeTopicEnvKey, &cfg.Ledger.RevokeTopicID},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.target = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv(uploadMediaEnvKey)); raw != "" {
		cfg.Uploads.AllowedMediaTypes = splitCSV(raw)
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "ledger.retrieve_attempts":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 || parsed > MaxRetrieveAttempts {
			return nil, fmt.Errorf("%s must be an integer between 1 and %d", key, MaxRetrieveAttempts)
		}
		return int64(parsed), nil
	case "ledger.max_transaction_fee":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive number of hbar", key)
		}
		return parsed, nil
	case "ledger.retrieve_backoff":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration like 500ms", key)
		}
		return value, nil
	case "uploads.allowed_media_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Ledger.Network = strings.ToLower(strings.TrimSpace(c.Ledger.Network))
	if c.Ledger.Network == "" {
		c.Ledger.Network = DefaultLedgerNetwork
	}
	if c.Ledger.IsMemory() {
		if strings.TrimSpace(c.Ledger.AnchorTopicID) == "" {
			c.Ledger.AnchorTopicID = MemoryAnchorTopicID
		}
		if strings.TrimSpace(c.Ledger.RevokeTopicID) == "" {
			c.Ledger.RevokeTopicID = MemoryRevokeTopicID
		}
	}
	if c.Ledger.MaxTransactionFee <= 0 {
		c.Ledger.MaxTransactionFee = DefaultMaxTransactionFee
	}
	if c.Ledger.RetrieveAttempts <= 0 {
		c.Ledger.RetrieveAttempts = DefaultRetrieveAttempts
	}
	if c.Ledger.RetrieveAttempts > MaxRetrieveAttempts {
		c.Ledger.RetrieveAttempts = MaxRetrieveAttempts
	}
	if strings.TrimSpace(c.Ledger.RetrieveBackoff) == "" {
		c.Ledger.RetrieveBackoff = DefaultRetrieveBackoff
	}
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultUploadMaxBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultUploadMemory
	}
	c.Uploads.AllowedMediaTypes = normalizeConfiguredMediaTypes(c.Uploads.AllowedMediaTypes)
}

func normalizeConfiguredMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
