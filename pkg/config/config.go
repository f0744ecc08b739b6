package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for cargohook
type Config struct {
	Tools ToolsConfig `mapstructure:"tools"`
	Hooks HooksConfig `mapstructure:"hooks"`
	Run   RunConfig   `mapstructure:"run"`
}

// ToolsConfig holds the binaries the pipeline shells out to. Overrides are
// mostly useful on machines with several toolchain installations.
type ToolsConfig struct {
	Cargo  string `mapstructure:"cargo"`
	Rustup string `mapstructure:"rustup"`
	Git    string `mapstructure:"git"`
}

// HooksConfig holds the repository-relative hook locations
type HooksConfig struct {
	Manifest  string `mapstructure:"manifest"`
	SourceDir string `mapstructure:"source_dir"`
}

// RunConfig holds pipeline execution options
type RunConfig struct {
	AutofixChannel string        `mapstructure:"autofix_channel"`
	StageTimeout   time.Duration `mapstructure:"stage_timeout"`
}

var defaultConfig = Config{
	Tools: ToolsConfig{
		Cargo:  "cargo",
		Rustup: "rustup",
		Git:    "git",
	},
	Hooks: HooksConfig{
		Manifest:  ".cargohook/hooks.yaml",
		SourceDir: ".cargohook/hooks",
	},
	Run: RunConfig{
		AutofixChannel: "nightly",
		StageTimeout:   0, // no limit; commit-time tools are interactive
	},
}

// LoadConfig loads configuration from various sources
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("tools.cargo", defaultConfig.Tools.Cargo)
	v.SetDefault("tools.rustup", defaultConfig.Tools.Rustup)
	v.SetDefault("tools.git", defaultConfig.Tools.Git)
	v.SetDefault("hooks.manifest", defaultConfig.Hooks.Manifest)
	v.SetDefault("hooks.source_dir", defaultConfig.Hooks.SourceDir)
	v.SetDefault("run.autofix_channel", defaultConfig.Run.AutofixChannel)
	v.SetDefault("run.stage_timeout", defaultConfig.Run.StageTimeout)

	// Configuration file search paths
	v.SetConfigName("cargohook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // Current directory
	v.AddConfigPath("$HOME") // Home directory

	// Add cargohook home directory if available
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}

	// Environment variables
	v.SetEnvPrefix("CARGOHOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to read config file (optional); ignore error to use defaults
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	return &config, nil
}

// LoadProjectConfig loads project-specific configuration layered over the
// global one. The project file travels with the repository, so teams can pin
// tool paths without touching contributors' home directories.
func LoadProjectConfig() (*Config, error) {
	// First load global config
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	// Look for project-specific config files
	projectConfigs := []string{
		".cargohook.yaml",
		".cargohook.yml",
		"cargohook.yaml",
		"cargohook.yml",
	}

	for _, configFile := range projectConfigs {
		if _, err := os.Stat(configFile); err == nil {
			v := viper.New()
			v.SetConfigFile(configFile)

			if err := v.ReadInConfig(); err != nil {
				continue // Try next config file
			}

			// Merge project config with global config
			if err := v.Unmarshal(config); err != nil {
				continue
			}

			break
		}
	}

	return config, nil
}

// CargoBin returns the cargo binary to invoke
func (c *Config) CargoBin() string {
	if c.Tools.Cargo != "" {
		return c.Tools.Cargo
	}
	return defaultConfig.Tools.Cargo
}

// RustupBin returns the rustup binary to invoke
func (c *Config) RustupBin() string {
	if c.Tools.Rustup != "" {
		return c.Tools.Rustup
	}
	return defaultConfig.Tools.Rustup
}

// GitBin returns the git binary to invoke
func (c *Config) GitBin() string {
	if c.Tools.Git != "" {
		return c.Tools.Git
	}
	return defaultConfig.Tools.Git
}

// ManifestPath returns the repository-relative hooks manifest path
func (c *Config) ManifestPath() string {
	if c.Hooks.Manifest != "" {
		return c.Hooks.Manifest
	}
	return defaultConfig.Hooks.Manifest
}

// HookSourceDir returns the repository-relative hook source directory
func (c *Config) HookSourceDir() string {
	if c.Hooks.SourceDir != "" {
		return c.Hooks.SourceDir
	}
	return defaultConfig.Hooks.SourceDir
}

// GetCargohookHome returns the cargohook home directory
func GetCargohookHome() (string, error) {
	// Check environment variable first
	if home := os.Getenv("CARGOHOOK_HOME"); home != "" {
		return home, nil
	}

	// Use standard dev tool convention: ~/.cargohook
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".cargohook"), nil
}

// EnsureCargohookHome creates the cargohook home directory if it doesn't exist
func EnsureCargohookHome() (string, error) {
	homeDir, err := GetCargohookHome()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create cargohook home directory: %v", err)
	}

	return homeDir, nil
}

// GetConfigDir returns the config directory
func GetConfigDir() (string, error) {
	homeDir, err := EnsureCargohookHome()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(homeDir, "config")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %v", err)
	}
	return configDir, nil
}
