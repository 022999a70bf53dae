package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.ngs.io/gws-mcp-advanced/auth"
)

// Config represents the application configuration
type Config struct {
	OAuth    auth.OAuthConfig `json:"oauth"`
	Services ServicesConfig   `json:"services"`
	Global   GlobalConfig     `json:"global"`
}

// ServicesConfig represents configuration for all services
type ServicesConfig struct {
	Docs  DocsConfig  `json:"docs"`
	Drive DriveConfig `json:"drive"`
}

// DocsConfig represents Docs service configuration
type DocsConfig struct {
	Enabled bool `json:"enabled"`
}

// DriveConfig represents Drive service configuration
type DriveConfig struct {
	Enabled        bool  `json:"enabled"`
	SearchPageSize int64 `json:"search_page_size,omitempty"`
}

// GlobalConfig represents global configuration
type GlobalConfig struct {
	LogLevel       string `json:"log_level,omitempty"`
	TimeoutSeconds int    `json:"timeout,omitempty"`
}

// Load loads configuration from config files and environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Services: ServicesConfig{
			Docs:  DocsConfig{Enabled: true},
			Drive: DriveConfig{Enabled: true},
		},
		Global: GlobalConfig{
			LogLevel:       "info",
			TimeoutSeconds: 300,
		},
	}

	configPaths := []string{
		"config.json",
		"config.local.json",
		filepath.Join(os.Getenv("HOME"), ".gws-mcp-advanced", "config.json"),
		"/etc/gws-mcp-advanced/config.json",
	}
	for _, path := range configPaths {
		if err := cfg.loadFromFile(path); err == nil {
			break
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.setDefaults()

	return cfg, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (c *Config) loadFromEnv() {
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		c.OAuth.ClientID = clientID
	}
	if clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET"); clientSecret != "" {
		c.OAuth.ClientSecret = clientSecret
	}
	if redirectURI := os.Getenv("GOOGLE_REDIRECT_URI"); redirectURI != "" {
		c.OAuth.RedirectURI = redirectURI
	}
	if tokenFile := os.Getenv("GOOGLE_TOKEN_FILE"); tokenFile != "" {
		c.OAuth.TokenFile = tokenFile
	}

	if os.Getenv("DISABLE_DOCS") == "true" {
		c.Services.Docs.Enabled = false
	}
	if os.Getenv("DISABLE_DRIVE") == "true" {
		c.Services.Drive.Enabled = false
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Global.LogLevel = logLevel
	}
}

// loadFromFile loads configuration from a JSON file
func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if err := json.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if !c.Services.Docs.Enabled && !c.Services.Drive.Enabled {
		return fmt.Errorf("at least one service must be enabled")
	}
	return nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Services.Drive.Enabled && c.Services.Drive.SearchPageSize == 0 {
		c.Services.Drive.SearchPageSize = 10
	}
}

// SaveExample saves an example configuration file
func SaveExample(path string) error {
	example := &Config{
		OAuth: auth.OAuthConfig{
			ClientID:     "YOUR_CLIENT_ID.apps.googleusercontent.com",
			ClientSecret: "YOUR_CLIENT_SECRET",
			RedirectURI:  "http://localhost:8080/callback",
			TokenFile:    "~/.gws-mcp-token.json",
			Scopes:       auth.DefaultScopes(),
		},
		Services: ServicesConfig{
			Docs:  DocsConfig{Enabled: true},
			Drive: DriveConfig{Enabled: true, SearchPageSize: 10},
		},
		Global: GlobalConfig{
			LogLevel:       "info",
			TimeoutSeconds: 300,
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(example)
}
