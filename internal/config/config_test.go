package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "sourcerack.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "sqlite-vss", cfg.VectorStorage.Provider)

	assert.True(t, cfg.Embedding.Enabled)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "BAAI/bge-small-en-v1.5", cfg.Embedding.Model)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)

	assert.Equal(t, 50, cfg.Indexing.ChunkSize.Min)
	assert.Equal(t, 400, cfg.Indexing.ChunkSize.Max)
	assert.NotEmpty(t, cfg.Indexing.Languages)
	assert.Contains(t, cfg.Indexing.ExcludePatterns, "node_modules/**")

	assert.Equal(t, 30, cfg.GC.RetentionDays)

	require.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoFileExists(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "sourcerack.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 30, cfg.GC.RetentionDays)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	contents := `{
		"storage": {"databasePath": "/data/repo.db"},
		"gc": {"retentionDays": 7}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(contents), 0o644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "/data/repo.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7, cfg.GC.RetentionDays)
	// Unspecified sections still fall back to defaults.
	assert.Equal(t, "sqlite-vss", cfg.VectorStorage.Provider)
}

func TestLoadConfig_EnvironmentVariablesOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOURCERACK_GC_RETENTIONDAYS", "90")
	t.Setenv("SOURCERACK_STORAGE_DATABASEPATH", "/env/path.db")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.GC.RetentionDays)
	assert.Equal(t, "/env/path.db", cfg.Storage.DatabasePath)
}

func TestLoadConfig_RejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	contents := `{"storage": {"databasePath": "x.db", "typo": true}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(contents), 0o644))

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown configuration key")
}

func TestLoadConfig_RejectsInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()
	contents := `{"gc": {"retentionDays": -1}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(contents), 0o644))

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRetention)
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_RejectsInvalidVectorStorageProvider(t *testing.T) {
	cfg := Default()
	cfg.VectorStorage.Provider = "redis"
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidVectorProvider)
}

func TestValidate_RejectsEmptyDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.Storage.DatabasePath = "  "
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDatabasePath)
}

func TestValidate_SkipsEmbeddingChecksWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Enabled = false
	cfg.Embedding.Model = ""
	cfg.Embedding.BatchSize = 0
	assert.NoError(t, Validate(cfg))
}

func TestValidate_RejectsInvalidEmbeddingProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "bogus"
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestValidate_RequiresRemoteURLForRemoteProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "remote"
	cfg.Embedding.RemoteURL = ""
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyRemoteURL)
}

func TestValidate_RejectsChunkSizeMinGreaterThanMax(t *testing.T) {
	cfg := Default()
	cfg.Indexing.ChunkSize.Min = 500
	cfg.Indexing.ChunkSize.Max = 100
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestValidate_RejectsEmptyLanguages(t *testing.T) {
	cfg := Default()
	cfg.Indexing.Languages = nil
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyLanguages)
}

func TestValidate_RejectsNegativeRetention(t *testing.T) {
	cfg := Default()
	cfg.GC.RetentionDays = -5
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRetention)
}

func TestValidate_RejectsUnknownDefaultGroup(t *testing.T) {
	cfg := Default()
	cfg.Groups.DefaultGroup = "backend"
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestValidate_AcceptsKnownDefaultGroup(t *testing.T) {
	cfg := Default()
	cfg.Groups.Named = map[string]Group{"backend": {Repos: []string{"/repo/a"}}}
	cfg.Groups.DefaultGroup = "backend"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.GC.RetentionDays = -1
	cfg.VectorStorage.Provider = "nope"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), ErrInvalidRetention.Error())
	assert.Contains(t, err.Error(), ErrInvalidVectorProvider.Error())
}

func TestRejectUnknownKeys_AllowsNestedMapFields(t *testing.T) {
	settings := map[string]interface{}{
		"vectorstorage": map[string]interface{}{
			"provider": "qdrant",
			"options":  map[string]interface{}{"anyKeyAtAll": 1},
		},
		"groups": map[string]interface{}{
			"named": map[string]interface{}{
				"backend": map[string]interface{}{"repos": []interface{}{"/a"}},
			},
		},
	}
	assert.NoError(t, RejectUnknownKeys(settings))
}
