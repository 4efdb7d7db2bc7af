// Package config provides configuration management for sigilid.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/sigilid/internal/fileutil"
	"github.com/mrz1836/sigilid/internal/wallet/addrcodec"
)

// FileName is the config file inside the home directory.
const FileName = "config.yaml"

// Config represents the application configuration.
type Config struct {
	Version        int                      `yaml:"version" default:"1" validate:"eq=1"`
	Home           string                   `yaml:"home" default:"~/.sigilid" validate:"required"`
	Hub            HubConfig                `yaml:"hub"`
	Auth           AuthConfig               `yaml:"auth"`
	Networks       map[string]NetworkConfig `yaml:"networks" validate:"required,min=1,dive"`
	CurrentNetwork string                   `yaml:"current_network" default:"mainnet" validate:"required"`
	Security       SecurityConfig           `yaml:"security"`
	Output         OutputConfig             `yaml:"output"`
	Logging        LoggingConfig            `yaml:"logging"`
}

// HubConfig defines the remote storage hub settings.
type HubConfig struct {
	URL           string        `yaml:"url" default:"https://hub.blockstack.org" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	RetryAttempts int           `yaml:"retry_attempts" default:"3" validate:"gte=1,lte=10"`
	RateLimit     float64       `yaml:"rate_limit" default:"10" validate:"gte=0"`
	Burst         int           `yaml:"burst" default:"5" validate:"gte=1"`
}

// AuthConfig defines auth handshake settings.
type AuthConfig struct {
	ManifestTimeout time.Duration `yaml:"manifest_timeout" default:"10s" validate:"gt=0"`
	ResponseTTL     time.Duration `yaml:"response_ttl" default:"720h" validate:"gt=0"`

	// DeterministicUsernames omits usernames from signed responses.
	DeterministicUsernames  bool `yaml:"deterministic_usernames"`
	VerifyRequestSignatures bool `yaml:"verify_request_signatures"`
}

// NetworkConfig defines one chain network.
type NetworkConfig struct {
	Name    string `yaml:"name" validate:"required"`
	APIURL  string `yaml:"api_url" validate:"required,url"`
	Version string `yaml:"version" validate:"oneof=mainnet testnet"`
}

// AddressVersion returns the c32 address version of the network.
func (n NetworkConfig) AddressVersion() byte {
	if n.Version == "testnet" {
		return addrcodec.VersionTestnetSingleSig
	}
	return addrcodec.VersionMainnetSingleSig
}

// SecurityConfig defines security settings.
type SecurityConfig struct {
	// DefaultPassword encrypts new wallets until a password is set.
	DefaultPassword   string `yaml:"default_password" default:"password" validate:"required"`
	MinPasswordLength int    `yaml:"min_password_length" default:"8" validate:"gte=1"`
	ScryptWorkFactor  int    `yaml:"scrypt_work_factor" default:"18" validate:"gte=10,lte=22"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" default:"auto" validate:"oneof=auto text json"`
	Color         string `yaml:"color" default:"auto" validate:"oneof=auto always never"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" default:"error" validate:"oneof=off error warn info debug"`
	File  string `yaml:"file" default:"~/.sigilid/sigilid.log"`
}

// Load reads configuration from path on top of the defaults, then applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, invalid(err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := ApplyEnvironment(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), fileutil.PrivateDirPerm); err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, fileutil.PrivateFilePerm)
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(ExpandHome(home), FileName)
}

// GetHome returns the expanded home directory.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// Network returns the current network.
func (c *Config) Network() (NetworkConfig, bool) {
	n, ok := c.Networks[c.CurrentNetwork]
	return n, ok
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the expanded log file path.
func (c *Config) GetLoggingFile() string {
	return ExpandHome(c.Logging.File)
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default sigilid home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sigilid"
	}
	return filepath.Join(home, ".sigilid")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
