package config

import (
	"github.com/charmbracelet/log"

	"github.com/bastiangx/nextword/internal/utils"
)

// tryPartialParse keeps every well-typed value of a file that failed strict
// decoding, e.g. one with `max_suggestions = "five"`.
func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return cfg, nil
	}

	if section, ok := utils.ExtractSection(raw, "predict"); ok {
		setInt(section, "max_suggestions", &cfg.Predict.MaxSuggestions)
		setInt(section, "context_size", &cfg.Predict.ContextSize)
		setString(section, "locale", &cfg.Predict.Locale)
		setInt(section, "dictionary_depth", &cfg.Predict.DictionaryDepth)
		setInt(section, "cache_size", &cfg.Predict.CacheSize)
	}
	if section, ok := utils.ExtractSection(raw, "learn"); ok {
		setBool(section, "bulk_sentence_learning", &cfg.Learn.BulkSentenceLearning)
		setInt(section, "bigram_flush_every", &cfg.Learn.BigramFlushEvery)
		setInt(section, "trigram_flush_every", &cfg.Learn.TrigramFlushEvery)
	}
	if section, ok := utils.ExtractSection(raw, "maintenance"); ok {
		setInt(section, "min_frequency", &cfg.Maintenance.MinFrequency)
		setInt(section, "max_age_days", &cfg.Maintenance.MaxAgeDays)
	}
	if section, ok := utils.ExtractSection(raw, "storage"); ok {
		setString(section, "backend", &cfg.Storage.Backend)
		setString(section, "path", &cfg.Storage.Path)
	}
	if section, ok := utils.ExtractSection(raw, "server"); ok {
		setInt(section, "max_limit", &cfg.Server.MaxLimit)
		setInt(section, "max_prefix", &cfg.Server.MaxPrefix)
	}
	if section, ok := utils.ExtractSection(raw, "dict"); ok {
		setInt(section, "max_words", &cfg.Dict.MaxWords)
	}
	if section, ok := utils.ExtractSection(raw, "cli"); ok {
		setInt(section, "default_limit", &cfg.CLI.DefaultLimit)
		setBool(section, "default_no_filter", &cfg.CLI.DefaultNoFilter)
	}
	return cfg, nil
}

func setInt(section map[string]any, key string, dst *int) {
	if val, ok := utils.ExtractInt64(section, key); ok {
		*dst = val
	}
}

func setBool(section map[string]any, key string, dst *bool) {
	if val, ok := utils.ExtractBool(section, key); ok {
		*dst = val
	}
}

func setString(section map[string]any, key string, dst *string) {
	if val, ok := utils.ExtractString(section, key); ok {
		*dst = val
	}
}
