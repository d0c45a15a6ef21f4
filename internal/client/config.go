package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the client configuration, stored as TOML in
// ~/.harmonic/config.toml.
type Config struct {
	API       APIConfig `toml:"api"`
	Cache     string    `toml:"cache_path"`
	Theme     string    `toml:"theme"`
	ThemesDir string    `toml:"themes_dir"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL    string `toml:"base_url"`
	GatewayURL string `toml:"gateway_url"`
	Token      string `toml:"token"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8080/api",
			GatewayURL: "ws://localhost:8080",
		},
		Theme: "dracula",
	}
}

// ConfigDir returns the per-user config directory, creating it if missing.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".harmonic")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the config at path, or returns defaults when the file
// does not exist.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveConfig writes the config atomically: temp file then rename.
func SaveConfig(path string, config *Config) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
