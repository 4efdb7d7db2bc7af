package config

import (
	"github.com/creasty/defaults"
)

// Default network endpoints.
const (
	DefaultMainnetAPI = "https://api.mainnet.hiro.so"
	DefaultTestnetAPI = "https://api.testnet.hiro.so"
)

// Defaults returns the default configuration. Scalar defaults come from the
// struct tags.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}
	cfg.Networks = map[string]NetworkConfig{
		"mainnet": {Name: "Mainnet", APIURL: DefaultMainnetAPI, Version: "mainnet"},
		"testnet": {Name: "Testnet", APIURL: DefaultTestnetAPI, Version: "testnet"},
	}
	return cfg, nil
}
