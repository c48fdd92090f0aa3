/*
Package config manages TOML config for nextword services.
*/
package config

import (
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/nextword/internal/utils"
)

// Config holds the entire config structure
type Config struct {
	Predict     PredictConfig     `toml:"predict"`
	Learn       LearnConfig       `toml:"learn"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Storage     StorageConfig     `toml:"storage"`
	Server      ServerConfig      `toml:"server"`
	Dict        DictConfig        `toml:"dict"`
	CLI         CliConfig         `toml:"cli"`
}

// PredictConfig controls ranking.
type PredictConfig struct {
	MaxSuggestions  int    `toml:"max_suggestions"`
	ContextSize     int    `toml:"context_size"`
	Locale          string `toml:"locale"`
	DictionaryDepth int    `toml:"dictionary_depth"`
	CacheSize       int    `toml:"cache_size"`
}

// LearnConfig controls the write path and flush cadence.
type LearnConfig struct {
	BulkSentenceLearning bool `toml:"bulk_sentence_learning"`
	BigramFlushEvery     int  `toml:"bigram_flush_every"`
	TrigramFlushEvery    int  `toml:"trigram_flush_every"`
}

// MaintenanceConfig holds pruning thresholds.
type MaintenanceConfig struct {
	MinFrequency int `toml:"min_frequency"`
	MaxAgeDays   int `toml:"max_age_days"`
}

// StorageConfig selects where learned history lives.
// An empty path resolves to the config directory.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit  int `toml:"max_limit"`
	MaxPrefix int `toml:"max_prefix"`
}

// DictConfig holds dictionary options.
type DictConfig struct {
	MaxWords int `toml:"max_words"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit    int  `toml:"default_limit"`
	DefaultNoFilter bool `toml:"default_no_filter"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Predict: PredictConfig{
			MaxSuggestions:  5,
			ContextSize:     3,
			Locale:          "tr",
			DictionaryDepth: 32,
			CacheSize:       256,
		},
		Learn: LearnConfig{
			BulkSentenceLearning: true,
			BigramFlushEvery:     10,
			TrigramFlushEvery:    50,
		},
		Maintenance: MaintenanceConfig{
			MinFrequency: 2,
			MaxAgeDays:   30,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "",
		},
		Server: ServerConfig{
			MaxLimit:  16,
			MaxPrefix: 60,
		},
		Dict: DictConfig{
			MaxWords: 50000,
		},
		CLI: CliConfig{
			DefaultLimit:    5,
			DefaultNoFilter: false,
		},
	}
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/nextword/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath, defaultPath string) (*Config, string) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			cfg, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return cfg, customConfigPath
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s. Trying default path...", customConfigPath)
		}
	}
	if defaultPath == "" {
		return DefaultConfig(), ""
	}
	cfg := InitConfig(defaultPath)
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return cfg, defaultPath
}

// InitConfig loads config from file or creates default if missing.
// Any failure degrades to builtin defaults.
func InitConfig(configPath string) *Config {
	configDir := filepath.Dir(configPath)
	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig()
	}

	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig()
		}
		log.Debugf("Created default config file at: %s", configPath)
		return cfg
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig()
	}
	return cfg
}

// LoadConfig loads from a TOML file on top of the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

// SaveConfig saves into a TOML file
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}
