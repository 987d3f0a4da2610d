package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrEmptyModel indicates a missing embedding model name.
	ErrEmptyModel = errors.New("empty embedding model")

	// ErrInvalidBatchSize indicates a non-positive embedding batch size.
	ErrInvalidBatchSize = errors.New("invalid embedding batch size")

	// ErrEmptyRemoteURL indicates a remote embedding provider with no URL.
	ErrEmptyRemoteURL = errors.New("empty remote embedding url")

	// ErrInvalidVectorProvider indicates an unsupported vector storage backend.
	ErrInvalidVectorProvider = errors.New("invalid vector storage provider")

	// ErrEmptyDatabasePath indicates a missing database path.
	ErrEmptyDatabasePath = errors.New("empty database path")

	// ErrInvalidChunkSize indicates an invalid chunk size range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrEmptyLanguages indicates no languages configured for indexing.
	ErrEmptyLanguages = errors.New("empty indexing languages")

	// ErrInvalidRetention indicates a negative GC retention period.
	ErrInvalidRetention = errors.New("invalid gc retention")

	// ErrUnknownGroup indicates groups.defaultGroup names a group that
	// doesn't exist in groups.named.
	ErrUnknownGroup = errors.New("unknown default group")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}
	if err := validateVectorStorage(&cfg.VectorStorage); err != nil {
		errs = append(errs, err)
	}
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateIndexing(&cfg.Indexing); err != nil {
		errs = append(errs, err)
	}
	if err := validateGC(&cfg.GC); err != nil {
		errs = append(errs, err)
	}
	if err := validateGroups(&cfg.Groups); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return fmt.Errorf("%w: databasePath is required", ErrEmptyDatabasePath)
	}
	return nil
}

func validateVectorStorage(cfg *VectorStorageConfig) error {
	provider := strings.ToLower(cfg.Provider)
	if provider != "sqlite-vss" && provider != "qdrant" {
		return fmt.Errorf("%w: must be 'sqlite-vss' or 'qdrant', got '%s'", ErrInvalidVectorProvider, cfg.Provider)
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	var errs []error

	provider := strings.ToLower(cfg.Provider)
	if provider != "mock" && provider != "local" && provider != "remote" {
		errs = append(errs, fmt.Errorf("%w: must be 'mock', 'local', or 'remote', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	if strings.TrimSpace(cfg.Model) == "" {
		errs = append(errs, fmt.Errorf("%w: model is required", ErrEmptyModel))
	}

	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batchSize must be positive, got %d", ErrInvalidBatchSize, cfg.BatchSize))
	}

	if provider == "remote" && strings.TrimSpace(cfg.RemoteURL) == "" {
		errs = append(errs, fmt.Errorf("%w: remoteUrl is required for the remote provider", ErrEmptyRemoteURL))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateIndexing(cfg *IndexingConfig) error {
	var errs []error

	if cfg.ChunkSize.Min <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunkSize.min must be positive, got %d", ErrInvalidChunkSize, cfg.ChunkSize.Min))
	}
	if cfg.ChunkSize.Max <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunkSize.max must be positive, got %d", ErrInvalidChunkSize, cfg.ChunkSize.Max))
	}
	if cfg.ChunkSize.Min > 0 && cfg.ChunkSize.Max > 0 && cfg.ChunkSize.Min > cfg.ChunkSize.Max {
		errs = append(errs, fmt.Errorf("%w: chunkSize.min (%d) must not exceed chunkSize.max (%d)", ErrInvalidChunkSize, cfg.ChunkSize.Min, cfg.ChunkSize.Max))
	}

	if len(cfg.Languages) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one language required", ErrEmptyLanguages))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateGC(cfg *GCConfig) error {
	if cfg.RetentionDays < 0 {
		return fmt.Errorf("%w: retentionDays cannot be negative, got %d", ErrInvalidRetention, cfg.RetentionDays)
	}
	return nil
}

func validateGroups(cfg *GroupsConfig) error {
	if cfg.DefaultGroup == "" {
		return nil
	}
	if _, ok := cfg.Named[cfg.DefaultGroup]; !ok {
		return fmt.Errorf("%w: %q is not defined in groups.named", ErrUnknownGroup, cfg.DefaultGroup)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
