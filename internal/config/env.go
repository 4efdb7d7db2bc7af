package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome             = "SIGILID_HOME"
	EnvHubURL           = "SIGILID_HUB_URL"
	EnvNetwork          = "SIGILID_NETWORK"
	EnvLogLevel         = "SIGILID_LOG_LEVEL"
	EnvOutputFormat     = "SIGILID_OUTPUT_FORMAT"
	EnvVerbose          = "SIGILID_VERBOSE"
	EnvTestMode         = "SIGILID_TEST_MODE"
	EnvVerifyRequests   = "SIGILID_VERIFY_AUTH_REQUESTS"
	EnvScryptWorkFactor = "SIGILID_SCRYPT_WORK_FACTOR"
	EnvNoColor          = "NO_COLOR"
)

// overrides holds the environment values that are set.
type overrides struct {
	Home             *string `env:"SIGILID_HOME"`
	HubURL           *string `env:"SIGILID_HUB_URL"`
	Network          *string `env:"SIGILID_NETWORK"`
	LogLevel         *string `env:"SIGILID_LOG_LEVEL"`
	OutputFormat     *string `env:"SIGILID_OUTPUT_FORMAT"`
	Verbose          *bool   `env:"SIGILID_VERBOSE"`
	TestMode         *bool   `env:"SIGILID_TEST_MODE"`
	VerifyRequests   *bool   `env:"SIGILID_VERIFY_AUTH_REQUESTS"`
	ScryptWorkFactor *int    `env:"SIGILID_SCRYPT_WORK_FACTOR"`
	NoColor          *string `env:"NO_COLOR"`
}

// ApplyEnvironment applies environment variable overrides to cfg.
// A value that cannot be parsed is an ErrConfigInvalid.
//
//nolint:gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return invalid(err)
	}

	if o.Home != nil && *o.Home != "" {
		cfg.Home = *o.Home
	}
	if o.HubURL != nil && *o.HubURL != "" {
		cfg.Hub.URL = SanitizeURL(*o.HubURL)
	}
	if o.Network != nil && *o.Network != "" {
		cfg.CurrentNetwork = strings.ToLower(strings.TrimSpace(*o.Network))
	}
	if o.LogLevel != nil && *o.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(*o.LogLevel)
	}
	if o.OutputFormat != nil && *o.OutputFormat != "" {
		cfg.Output.DefaultFormat = strings.ToLower(*o.OutputFormat)
	}
	if o.Verbose != nil {
		cfg.Output.Verbose = *o.Verbose
	}
	if o.TestMode != nil {
		cfg.Auth.DeterministicUsernames = *o.TestMode
	}
	if o.VerifyRequests != nil {
		cfg.Auth.VerifyRequestSignatures = *o.VerifyRequests
	}
	if o.ScryptWorkFactor != nil {
		cfg.Security.ScryptWorkFactor = *o.ScryptWorkFactor
	}

	// NO_COLOR disables colored output
	if o.NoColor != nil {
		cfg.Output.Color = "never"
	}
	return nil
}

// SanitizeURL cleans a URL string by removing invalid characters and
// trimming whitespace and trailing slashes.
func SanitizeURL(url string) string {
	return strings.TrimRight(sanitize.URL(strings.TrimSpace(url)), "/")
}
