// Package config provides configuration management for the LaTeX translator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ltxtrans/internal/logger"
	"ltxtrans/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "ltxtrans.json"
	// EnvOpenAIAPIKey is the environment variable name for OpenAI API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the environment variable name for OpenAI base URL
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvOpenAIModel is the environment variable name for the model
	EnvOpenAIModel = "OPENAI_MODEL"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default OpenAI model to use
	DefaultModel = "gpt-4o"
	// DefaultMaxFragmentLength is the default fragment limit in characters
	DefaultMaxFragmentLength = 4000
	// DefaultConcurrency is the default translation concurrency
	DefaultConcurrency = 3
	// DefaultTemperature is the default sampling temperature
	DefaultTemperature = 0.5
	// DefaultMaxRetries is the default number of attempts per fragment
	DefaultMaxRetries = 2
	// DefaultTimeoutSeconds bounds a single API call
	DefaultTimeoutSeconds = 120

	DefaultSplitMarker       = "%trsltx-split"
	DefaultIgnoreBeginMarker = "%trsltx-begin-ignore"
	DefaultIgnoreEndMarker   = "%trsltx-end-ignore"
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
	getenv     func(string) string
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "ltxtrans", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		getenv:     os.Getenv,
	}, nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *types.Config {
	return &types.Config{
		OpenAIBaseURL:         DefaultBaseURL,
		OpenAIModel:           DefaultModel,
		MaxFragmentLength:     DefaultMaxFragmentLength,
		SplitMode:             types.SplitAutomatic,
		SplitMarker:           DefaultSplitMarker,
		IgnoreBeginMarker:     DefaultIgnoreBeginMarker,
		IgnoreEndMarker:       DefaultIgnoreEndMarker,
		Concurrency:           DefaultConcurrency,
		ConstrainedGeneration: true,
		GrammarFormat:         types.GrammarEBNF,
		Temperature:           DefaultTemperature,
		MaxRetries:            DefaultMaxRetries,
		TimeoutSeconds:        DefaultTimeoutSeconds,
		EnforceGrammar:        true,
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values. Fields absent from the
// file keep their defaults; empty API settings fall back to the environment.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	config := DefaultConfig()
	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
	case err != nil:
		logger.Error("failed to read config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to read config file", err)
	default:
		if isYAML(m.configPath) {
			err = yaml.Unmarshal(data, config)
		} else {
			err = json.Unmarshal(data, config)
		}
		if err != nil {
			logger.Error("invalid config file format", err, logger.String("path", m.configPath))
			return types.NewAppErrorWithDetails(types.ErrConfig, "invalid config file format", m.configPath, err)
		}
		logger.Info("configuration loaded successfully",
			logger.String("path", m.configPath),
			logger.Int("apiKeyLength", len(config.OpenAIAPIKey)),
			logger.String("baseURL", config.OpenAIBaseURL),
			logger.String("model", config.OpenAIModel))
	}

	m.config = config
	m.applyDefaults()
	m.applyEnv()
	return nil
}

// applyDefaults fills fields a config file set to their zero value.
func (m *ConfigManager) applyDefaults() {
	c := m.config
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultModel
	}
	if c.MaxFragmentLength == 0 {
		c.MaxFragmentLength = DefaultMaxFragmentLength
	}
	if c.SplitMode == "" {
		c.SplitMode = types.SplitAutomatic
	}
	if c.SplitMarker == "" {
		c.SplitMarker = DefaultSplitMarker
	}
	if c.IgnoreBeginMarker == "" {
		c.IgnoreBeginMarker = DefaultIgnoreBeginMarker
	}
	if c.IgnoreEndMarker == "" {
		c.IgnoreEndMarker = DefaultIgnoreEndMarker
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.GrammarFormat == "" {
		c.GrammarFormat = types.GrammarEBNF
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// applyEnv fills empty API settings from the environment.
func (m *ConfigManager) applyEnv() {
	c := m.config
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = m.getenv(EnvOpenAIAPIKey)
	}
	if c.OpenAIBaseURL == "" || c.OpenAIBaseURL == DefaultBaseURL {
		if env := m.getenv(EnvOpenAIBaseURL); env != "" {
			c.OpenAIBaseURL = env
		}
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = DefaultBaseURL
	}
	if env := m.getenv(EnvOpenAIModel); env != "" && c.OpenAIModel == DefaultModel {
		c.OpenAIModel = env
	}
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	var data []byte
	var err error
	if isYAML(m.configPath) {
		data, err = yaml.Marshal(m.config)
	} else {
		data, err = json.MarshalIndent(m.config, "", "  ")
	}
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return DefaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// ConfigValidationError represents a configuration validation error
type ConfigValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// ConfigValidationResult holds the result of config validation
type ConfigValidationResult struct {
	IsValid bool
	Errors  []*ConfigValidationError
}

// Err folds the validation errors into one AppError, or returns nil.
func (r *ConfigValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return types.NewAppErrorWithDetails(types.ErrConfig, "invalid configuration", strings.Join(msgs, "; "), nil)
}

// ValidateConfig validates a configuration and returns every violation.
func ValidateConfig(config *types.Config) *ConfigValidationResult {
	result := &ConfigValidationResult{
		IsValid: true,
		Errors:  make([]*ConfigValidationError, 0),
	}
	add := func(field string, value interface{}, msg string) {
		result.Errors = append(result.Errors, &ConfigValidationError{Field: field, Value: value, Message: msg})
	}

	if config.MaxFragmentLength < 1 {
		add("max_fragment_length", config.MaxFragmentLength, "must be at least 1")
	}
	if config.Concurrency < 1 {
		add("concurrency", config.Concurrency, "must be at least 1")
	}
	switch config.SplitMode {
	case types.SplitAutomatic, types.SplitManual:
	default:
		add("split_mode", config.SplitMode, "must be 'automatic' or 'manual'")
	}
	switch config.GrammarFormat {
	case types.GrammarEBNF, types.GrammarGBNF:
	default:
		add("grammar_format", config.GrammarFormat, "must be 'ebnf' or 'gbnf'")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		add("temperature", config.Temperature, "must be between 0 and 2")
	}
	if config.MaxRetries < 1 {
		add("max_retries", config.MaxRetries, "must be at least 1")
	}
	if config.TimeoutSeconds < 1 {
		add("timeout_seconds", config.TimeoutSeconds, "must be at least 1")
	}

	markers := map[string]string{
		"split_marker":        config.SplitMarker,
		"ignore_begin_marker": config.IgnoreBeginMarker,
		"ignore_end_marker":   config.IgnoreEndMarker,
	}
	seen := make(map[string]string)
	for _, field := range []string{"split_marker", "ignore_begin_marker", "ignore_end_marker"} {
		v := markers[field]
		switch {
		case strings.TrimSpace(v) == "":
			add(field, v, "must not be empty")
		case strings.ContainsAny(v, " \t\n"):
			add(field, v, "must not contain whitespace")
		case seen[v] != "":
			add(field, v, "must differ from "+seen[v])
		default:
			seen[v] = field
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
