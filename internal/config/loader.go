package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// configDirName is the subdirectory of the user's config directory that
// holds SourceRack's config file, e.g. ~/.config/sourcerack on Linux.
const configDirName = "sourcerack"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	configDir string
}

// NewLoader creates a configuration loader that reads config.json out of
// the given directory.
func NewLoader(configDir string) Loader {
	return &loader{configDir: configDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SOURCERACK_*)
// 2. Config file (config.json in the per-user config directory)
// 3. Default values
//
// After unmarshalling, the raw decoded map is checked against the generated
// JSON schema (schema.go) for unknown keys before semantic validation runs.
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(l.configDir)

	v.SetEnvPrefix("SOURCERACK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := RejectUnknownKeys(v.AllSettings()); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnv binds every SOURCERACK_* environment variable SourceRack
// recognizes to its config key.
func bindEnv(v *viper.Viper) {
	v.BindEnv("storage.databasePath")
	v.BindEnv("vectorStorage.provider")
	v.BindEnv("embedding.enabled")
	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.batchSize")
	v.BindEnv("embedding.remoteUrl")
	v.BindEnv("embedding.remoteApiKey")
	v.BindEnv("indexing.chunkSize.min")
	v.BindEnv("indexing.chunkSize.max")
	v.BindEnv("gc.retentionDays")
	v.BindEnv("groups.defaultGroup")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("storage.databasePath", defaults.Storage.DatabasePath)

	v.SetDefault("vectorStorage.provider", defaults.VectorStorage.Provider)

	v.SetDefault("embedding.enabled", defaults.Embedding.Enabled)
	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.batchSize", defaults.Embedding.BatchSize)

	v.SetDefault("indexing.chunkSize.min", defaults.Indexing.ChunkSize.Min)
	v.SetDefault("indexing.chunkSize.max", defaults.Indexing.ChunkSize.Max)
	v.SetDefault("indexing.languages", defaults.Indexing.Languages)
	v.SetDefault("indexing.excludePatterns", defaults.Indexing.ExcludePatterns)

	v.SetDefault("gc.retentionDays", defaults.GC.RetentionDays)
}

// DefaultConfigDir returns the per-user directory SourceRack's config file
// lives in, creating it if necessary.
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	dir := filepath.Join(base, configDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// LoadConfig is a convenience function that loads config from the default
// per-user config directory.
func LoadConfig() (*Config, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return NewLoader(dir).Load()
}

// LoadConfigFromDir loads configuration from a specific directory, for
// tests and the --config-dir CLI override.
func LoadConfigFromDir(configDir string) (*Config, error) {
	return NewLoader(configDir).Load()
}
