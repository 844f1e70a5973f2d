// ABOUTME: Configuration loading and parsing for gatewarden
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DemoSecret is the placeholder long-term secret used in demo mode. It is
// rejected by Validate unless auth.demo_mode is set.
const DemoSecret = "demo-secret-not-for-production"

// DemoRotatingSeed is the placeholder rotating-code seed for demo mode.
const DemoRotatingSeed = "demo-rotating-seed"

// Audit backends.
const (
	AuditBackendMemory = "memory"
	AuditBackendSQLite = "sqlite"
)

// Config represents the complete gatewarden configuration.
type Config struct {
	Server           ServerConfig  `yaml:"server"`
	Auth             AuthConfig    `yaml:"auth"`
	SensitiveActions []string      `yaml:"sensitive_actions"`
	Audit            AuditConfig   `yaml:"audit"`
	Logging          LoggingConfig `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AuthConfig holds the authentication protocol configuration.
type AuthConfig struct {
	Secret       string `yaml:"secret"`
	RotatingSeed string `yaml:"rotating_seed"`
	DemoMode     bool   `yaml:"demo_mode"`

	ChallengeTTL   time.Duration `yaml:"-"`
	RotationPeriod time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	ChallengeTTLRaw   string `yaml:"challenge_ttl"`
	RotationPeriodRaw string `yaml:"rotation_period"`
}

// AuditConfig holds audit log configuration.
type AuditConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a demo-mode configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Auth.DemoMode = true
	cfg.Auth.Secret = DemoSecret
	cfg.Auth.RotatingSeed = DemoRotatingSeed
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded and
// duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in defaults for optional fields.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8787"
	}
	if c.Auth.ChallengeTTL == 0 {
		c.Auth.ChallengeTTL = 5 * time.Minute
	}
	if c.Auth.RotationPeriod == 0 {
		c.Auth.RotationPeriod = 24 * time.Hour
	}
	if len(c.SensitiveActions) == 0 {
		c.SensitiveActions = []string{
			"delete_database",
			"execute_shell",
			"access_credentials",
			"modify_system",
		}
	}
	if c.Auth.DemoMode && c.Auth.Secret == "" {
		c.Auth.Secret = DemoSecret
	}
	if c.Auth.DemoMode && c.Auth.RotatingSeed == "" {
		c.Auth.RotatingSeed = DemoRotatingSeed
	}
	if c.Audit.Backend == "" {
		c.Audit.Backend = AuditBackendMemory
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if !c.Auth.DemoMode {
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth.secret is required (or enable auth.demo_mode)")
		}
		if c.Auth.Secret == DemoSecret {
			return fmt.Errorf("auth.secret must not be the demo placeholder outside demo mode")
		}
		if c.Auth.RotatingSeed == "" {
			return fmt.Errorf("auth.rotating_seed is required (or enable auth.demo_mode)")
		}
	}
	if c.Auth.ChallengeTTL <= 0 {
		return fmt.Errorf("auth.challenge_ttl must be positive")
	}
	if c.Auth.RotationPeriod <= 0 {
		return fmt.Errorf("auth.rotation_period must be positive")
	}

	switch c.Audit.Backend {
	case AuditBackendMemory:
	case AuditBackendSQLite:
		if c.Audit.Path == "" {
			return fmt.Errorf("audit.path is required when audit.backend is sqlite")
		}
	default:
		return fmt.Errorf("audit.backend must be %q or %q", AuditBackendMemory, AuditBackendSQLite)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func (c *Config) parseDurations() error {
	var err error

	if c.Auth.ChallengeTTLRaw != "" {
		c.Auth.ChallengeTTL, err = time.ParseDuration(c.Auth.ChallengeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing challenge_ttl %q: %w", c.Auth.ChallengeTTLRaw, err)
		}
	}

	if c.Auth.RotationPeriodRaw != "" {
		c.Auth.RotationPeriod, err = time.ParseDuration(c.Auth.RotationPeriodRaw)
		if err != nil {
			return fmt.Errorf("parsing rotation_period %q: %w", c.Auth.RotationPeriodRaw, err)
		}
	}

	return nil
}
