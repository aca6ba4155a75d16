package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate when the corresponding field is omitted.
const (
	DefaultPrefix       = "!"
	DefaultSheet        = "sheet.md"
	DefaultTokenEnv     = "HILDA_BOT_TOKEN"
	DefaultAuditChannel = "audit"
	DefaultBackupDir    = "."
)

// RedisConfig points the audit store at a Redis server. The store is
// disabled entirely when this section is absent.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// HildaConfig represents the top-level hilda.yml configuration
type HildaConfig struct {
	Version        string       `yaml:"version"`
	Instance       string       `yaml:"instance"`                  // Namespace for audit records in Redis
	Prefix         string       `yaml:"prefix,omitempty"`          // Command prefix (default "!")
	Sheet          string       `yaml:"sheet,omitempty"`           // Path to the template sheet (default "sheet.md")
	TokenEnv       string       `yaml:"token_env,omitempty"`       // Env var holding the bot token (default HILDA_BOT_TOKEN)
	AuditChannel   string       `yaml:"audit_channel,omitempty"`   // Channel name announcements go to (default "audit")
	RunningLocally bool         `yaml:"running_locally,omitempty"` // Enables filesystem-touching commands like save
	BackupDir      string       `yaml:"backup_dir,omitempty"`      // Where save writes backups (default ".")
	Redis          *RedisConfig `yaml:"redis,omitempty"`
}

// Validate performs strict validation on the configuration and fills
// in defaults for optional fields.
func (c *HildaConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: instance name
	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}

	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Sheet == "" {
		c.Sheet = DefaultSheet
	}
	if c.TokenEnv == "" {
		c.TokenEnv = DefaultTokenEnv
	}
	if c.AuditChannel == "" {
		c.AuditChannel = DefaultAuditChannel
	}
	if c.BackupDir == "" {
		c.BackupDir = DefaultBackupDir
	}

	if c.Redis != nil {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis section present but addr is empty")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	return nil
}

// Token reads the bot token from the configured environment variable.
func (c *HildaConfig) Token() (string, error) {
	token := os.Getenv(c.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("bot token not set: export %s", c.TokenEnv)
	}
	return token, nil
}

// Load reads and validates hilda.yml from the specified path
func Load(path string) (*HildaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config HildaConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
