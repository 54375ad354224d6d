package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all configurable parameters for the application
type Config struct {
	Port       int      `json:"port"`
	Vault      string   `json:"vault"`       // custodian address holding pooled assets
	Admins     []string `json:"admins"`      // accounts granted the administrator capability
	BeaconSeed string   `json:"beacon_seed"` // seed for the standalone draw beacon
}

// Load reads and parses the config.json file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads the default config from config.json in the current directory
func LoadDefault() (*Config, error) {
	return Load("config/config.json")
}
