/*
Package config manages TOML config for keylex services.

Config covers runtime tunables only. Paths to dictionary stores and model
files always come from flags, so a stale config file can never point a
keyboard at the wrong data.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/internal/utils"
)

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Predict PredictConfig `toml:"predict"`
	Dict    DictConfig    `toml:"dict"`
}

// ServerConfig has IPC server related options.
type ServerConfig struct {
	MaxLimit         int  `toml:"max_limit"`
	MinPrefix        int  `toml:"min_prefix"`
	MaxPrefix        int  `toml:"max_prefix"`
	EnableFilter     bool `toml:"enable_filter"`
	EnableCorrection bool `toml:"enable_correction"`
}

// PredictConfig holds prediction engine tunables.
type PredictConfig struct {
	MaxOrder  int `toml:"max_order"`
	Limit     int `toml:"limit"`
	CacheSize int `toml:"cache_size"`
}

// DictConfig holds completion dictionary options.
type DictConfig struct {
	MinFrequency int `toml:"min_frequency"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/keylex
// 2. ~/Library/Application Support/keylex (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "keylex")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "keylex")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [config dir]/config.toml, created on first run
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:         64,
			MinPrefix:        1,
			MaxPrefix:        60,
			EnableFilter:     true,
			EnableCorrection: true,
		},
		Predict: PredictConfig{
			MaxOrder:  3,
			Limit:     10,
			CacheSize: 512,
		},
		Dict: DictConfig{
			MinFrequency: 0,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Unknown or missing keys keep their
// defaults; a file that no longer parses as the Config struct goes through
// section-by-section recovery.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse salvages whatever valid sections remain in a damaged file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	parsed, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if serverSection, ok := utils.ExtractSection(parsed, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if predictSection, ok := utils.ExtractSection(parsed, "predict"); ok {
		extractPredictConfig(predictSection, &config.Predict)
	}
	if dictSection, ok := utils.ExtractSection(parsed, "dict"); ok {
		extractDictConfig(dictSection, &config.Dict)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_prefix"); ok {
		server.MinPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractBool(data, "enable_filter"); ok {
		server.EnableFilter = val
	}
	if val, ok := utils.ExtractBool(data, "enable_correction"); ok {
		server.EnableCorrection = val
	}
}

func extractPredictConfig(data map[string]any, predict *PredictConfig) {
	if val, ok := utils.ExtractInt64(data, "max_order"); ok {
		predict.MaxOrder = val
	}
	if val, ok := utils.ExtractInt64(data, "limit"); ok {
		predict.Limit = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		predict.CacheSize = val
	}
}

func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.ExtractInt64(data, "min_frequency"); ok {
		dict.MinFrequency = val
	}
}

// RebuildConfigFile force creates a new config.toml at the default path
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOMLFile(config, defaultPath)
}

// GetActiveConfigPath returns the absolute path of the loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
