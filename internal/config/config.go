package config

// Config is SourceRack's complete persistent configuration: a single JSON
// document in a per-user config directory (see loader.go), with environment
// variable overrides and schema validation layered on top.
type Config struct {
	Storage       StorageConfig       `json:"storage" mapstructure:"storage"`
	VectorStorage VectorStorageConfig `json:"vectorStorage" mapstructure:"vectorStorage"`
	Embedding     EmbeddingConfig     `json:"embedding" mapstructure:"embedding"`
	Indexing      IndexingConfig      `json:"indexing" mapstructure:"indexing"`
	GC            GCConfig            `json:"gc" mapstructure:"gc"`
	Groups        GroupsConfig        `json:"groups" mapstructure:"groups"`
}

// StorageConfig locates the metadata/SQI database file.
type StorageConfig struct {
	DatabasePath string `json:"databasePath" mapstructure:"databasePath"`
}

// VectorStorageConfig selects and configures the vector store backend.
type VectorStorageConfig struct {
	Provider string                 `json:"provider" mapstructure:"provider"` // "sqlite-vss" or "qdrant"
	Options  map[string]interface{} `json:"options,omitempty" mapstructure:"options"`
}

// EmbeddingConfig configures whether and how chunks are embedded.
type EmbeddingConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Provider     string `json:"provider" mapstructure:"provider"` // "mock", "local", or "remote"
	Model        string `json:"model" mapstructure:"model"`
	BatchSize    int    `json:"batchSize" mapstructure:"batchSize"`
	RemoteURL    string `json:"remoteUrl,omitempty" mapstructure:"remoteUrl"`
	RemoteAPIKey string `json:"remoteApiKey,omitempty" mapstructure:"remoteApiKey"`
}

// ChunkSizeConfig bounds how many lines a code chunk may span.
type ChunkSizeConfig struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

// IndexingConfig controls what the indexing pipeline processes.
type IndexingConfig struct {
	ChunkSize       ChunkSizeConfig `json:"chunkSize" mapstructure:"chunkSize"`
	Languages       []string        `json:"languages" mapstructure:"languages"`
	ExcludePatterns []string        `json:"excludePatterns" mapstructure:"excludePatterns"`
}

// GCConfig controls the garbage collector's retention horizon.
type GCConfig struct {
	RetentionDays int `json:"retentionDays" mapstructure:"retentionDays"`
}

// Group is a named collection of repositories that multi-repo query
// operations can target together.
type Group struct {
	Repos       []string `json:"repos" mapstructure:"repos"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
}

// GroupsConfig holds every configured group and which one is the default.
type GroupsConfig struct {
	Named        map[string]Group `json:"named" mapstructure:"named"`
	DefaultGroup string           `json:"defaultGroup,omitempty" mapstructure:"defaultGroup"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "sourcerack.db",
		},
		VectorStorage: VectorStorageConfig{
			Provider: "sqlite-vss",
		},
		Embedding: EmbeddingConfig{
			Enabled:   true,
			Provider:  "local",
			Model:     "BAAI/bge-small-en-v1.5",
			BatchSize: 32,
		},
		Indexing: IndexingConfig{
			ChunkSize: ChunkSizeConfig{Min: 50, Max: 400},
			Languages: []string{"go", "typescript", "javascript", "python", "rust", "java"},
			ExcludePatterns: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
			},
		},
		GC: GCConfig{
			RetentionDays: 30,
		},
		Groups: GroupsConfig{
			Named: map[string]Group{},
		},
	}
}
