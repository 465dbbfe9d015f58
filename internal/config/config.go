// ABOUTME: Configuration loading and parsing for the keyward server
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/logic"
	"github.com/2389/keyward/internal/registry"
)

// Config represents the complete keyward configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Security SecurityConfig `yaml:"security"`
	Registry RegistryConfig `yaml:"registry"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds operator authentication configuration.
// An empty secret leaves account creation open.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// SecurityConfig holds the delays and capacities applied to every account
type SecurityConfig struct {
	SecurityDelay     time.Duration `yaml:"-"`
	BackupAddDelay    time.Duration `yaml:"-"`
	BackupRemoveDelay time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SecurityDelayRaw     string `yaml:"security_delay"`
	BackupAddDelayRaw    string `yaml:"backup_add_delay"`
	BackupRemoveDelayRaw string `yaml:"backup_remove_delay"`

	OperationKeySlots int `yaml:"operation_key_slots"`
	MaxBackups        int `yaml:"max_backups"`
}

// RegistryConfig describes the module registry
type RegistryConfig struct {
	Address  string         `yaml:"address"`
	Capacity int            `yaml:"capacity"`
	Modules  []ModuleConfig `yaml:"modules"`
}

// ModuleConfig is one registry entry. Name selects the implementation.
type ModuleConfig struct {
	Name       string `yaml:"name"`
	Address    string `yaml:"address"`
	Authorized bool   `yaml:"authorized"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultPath returns the configuration path.
// Priority: KEYWARD_CONFIG env var > XDG_CONFIG_HOME/keyward/config.yaml > ~/.config/keyward/config.yaml
func DefaultPath() string {
	if p := os.Getenv("KEYWARD_CONFIG"); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "keyward", "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	d := account.DefaultParams()
	if cfg.Security.SecurityDelayRaw == "" {
		cfg.Security.SecurityDelayRaw = d.SecurityDelay.String()
	}
	if cfg.Security.BackupAddDelayRaw == "" {
		cfg.Security.BackupAddDelayRaw = d.BackupAddDelay.String()
	}
	if cfg.Security.BackupRemoveDelayRaw == "" {
		cfg.Security.BackupRemoveDelayRaw = d.BackupRemoveDelay.String()
	}
	if cfg.Security.OperationKeySlots == 0 {
		cfg.Security.OperationKeySlots = d.OperationKeySlots
	}
	if cfg.Security.MaxBackups == 0 {
		cfg.Security.MaxBackups = d.MaxBackups
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("security: %w", err)
	}

	if !common.IsHexAddress(c.Registry.Address) {
		return fmt.Errorf("registry.address %q is not a hex address", c.Registry.Address)
	}
	if len(c.Registry.Modules) == 0 {
		return fmt.Errorf("registry.modules must list at least one module")
	}
	for i, m := range c.Registry.Modules {
		if _, err := logic.ByName(m.Name); err != nil {
			return fmt.Errorf("registry.modules[%d]: %w", i, err)
		}
		if !common.IsHexAddress(m.Address) {
			return fmt.Errorf("registry.modules[%d].address %q is not a hex address", i, m.Address)
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// Params returns the account security parameters.
func (c *Config) Params() account.Params {
	return account.Params{
		SecurityDelay:     c.Security.SecurityDelay,
		BackupAddDelay:    c.Security.BackupAddDelay,
		BackupRemoveDelay: c.Security.BackupRemoveDelay,
		OperationKeySlots: c.Security.OperationKeySlots,
		MaxBackups:        c.Security.MaxBackups,
	}
}

// BuildRegistry constructs the module registry described by the configuration.
func (c *Config) BuildRegistry() (*registry.Registry, error) {
	entries := make([]registry.Entry, 0, len(c.Registry.Modules))
	for _, m := range c.Registry.Modules {
		entries = append(entries, registry.Entry{
			ID:         common.HexToAddress(m.Address),
			Name:       m.Name,
			Authorized: m.Authorized,
		})
	}
	return registry.New(common.HexToAddress(c.Registry.Address), c.Registry.Capacity, entries...)
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	cfg.Security.SecurityDelay, err = time.ParseDuration(cfg.Security.SecurityDelayRaw)
	if err != nil {
		return fmt.Errorf("parsing security_delay %q: %w", cfg.Security.SecurityDelayRaw, err)
	}

	cfg.Security.BackupAddDelay, err = time.ParseDuration(cfg.Security.BackupAddDelayRaw)
	if err != nil {
		return fmt.Errorf("parsing backup_add_delay %q: %w", cfg.Security.BackupAddDelayRaw, err)
	}

	cfg.Security.BackupRemoveDelay, err = time.ParseDuration(cfg.Security.BackupRemoveDelayRaw)
	if err != nil {
		return fmt.Errorf("parsing backup_remove_delay %q: %w", cfg.Security.BackupRemoveDelayRaw, err)
	}

	return nil
}

// Starter is the configuration written by "keyward init".
const Starter = `# keyward configuration
server:
  http_addr: "127.0.0.1:8545"

database:
  path: "${HOME}/.local/share/keyward/keyward.db"

auth:
  # Operators need a token signed with this secret to create accounts.
  jwt_secret: "${KEYWARD_JWT_SECRET}"

security:
  security_delay: "48h"
  backup_add_delay: "24h"
  backup_remove_delay: "72h"
  operation_key_slots: 3
  max_backups: 6

registry:
  address: "0x00000000000000000000000000000000000f0001"
  capacity: 8
  modules:
    - name: account
      address: "0x00000000000000000000000000000000000a0001"
      authorized: true
    - name: dualsigs
      address: "0x00000000000000000000000000000000000a0002"
      authorized: true

logging:
  level: "info"
  format: "text"

metrics:
  enabled: true
  path: "/metrics"
`
