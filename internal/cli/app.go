package cli

import (
	"database/sql"
	"fmt"

	"github.com/sourcerack/sourcerack/internal/chunker"
	"github.com/sourcerack/sourcerack/internal/config"
	"github.com/sourcerack/sourcerack/internal/embedprovider"
	"github.com/sourcerack/sourcerack/internal/endpoints"
	"github.com/sourcerack/sourcerack/internal/extract"
	"github.com/sourcerack/sourcerack/internal/gc"
	"github.com/sourcerack/sourcerack/internal/gitview"
	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/metastore"
	"github.com/sourcerack/sourcerack/internal/orchestrator"
	"github.com/sourcerack/sourcerack/internal/query"
	"github.com/sourcerack/sourcerack/internal/sqi"
	"github.com/sourcerack/sourcerack/internal/sqlstore"
	"github.com/sourcerack/sourcerack/internal/vectorstore"
	"github.com/sourcerack/sourcerack/internal/vectorstore/embedded"
)

// app bundles every long-lived handle a command needs, built once from the
// persistent --config-dir flag and closed by the caller when done.
type app struct {
	Config  *config.Config
	DB      *sql.DB
	SQI     *sqi.Store
	Meta    *metastore.Store
	Vectors vectorstore.Store
	Engine  *query.Engine
}

// newApp loads configuration and opens every store it names. Callers must
// call Close when finished.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, sqiStore, metaStore, err := sqlstore.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	vectors, err := openVectorStore(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	languages := langreg.New()
	engine := query.New(sqiStore, metaStore, gitview.New(), languages)

	return &app{
		Config:  cfg,
		DB:      db,
		SQI:     sqiStore,
		Meta:    metaStore,
		Vectors: vectors,
		Engine:  engine,
	}, nil
}

// Close releases every handle newApp opened.
func (a *app) Close() {
	if a.Vectors != nil {
		_ = a.Vectors.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// Collector builds a garbage collector over this app's already-open stores.
func (a *app) Collector() *gc.Collector {
	return gc.New(a.Meta, a.SQI, a.Vectors)
}

// Orchestrator builds an indexing orchestrator over this app's already-open
// stores plus a freshly constructed chunker/extractor/endpoint/embedding
// pipeline, per the configured embedding provider.
func (a *app) Orchestrator() (*orchestrator.Orchestrator, error) {
	languages := langreg.New()
	ck := chunker.New(languages)
	ex := extract.NewRegistry(languages)
	ep := endpoints.NewRegistry()

	embeds, err := openEmbedProvider(a.Config)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(gitview.New(), languages, ck, ex, ep, a.SQI, a.Meta, a.Vectors, embeds, 4), nil
}

func loadConfig() (*config.Config, error) {
	if cfgDir != "" {
		return config.LoadConfigFromDir(cfgDir)
	}
	return config.LoadConfig()
}

func openVectorStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStorage.Provider {
	case "sqlite-vss":
		return embedded.Open(cfg.Storage.DatabasePath + ".vectors")
	case "qdrant":
		return nil, fmt.Errorf("vectorStorage.provider %q is configured but no qdrant client is wired into this build", cfg.VectorStorage.Provider)
	default:
		return nil, fmt.Errorf("unknown vectorStorage.provider %q", cfg.VectorStorage.Provider)
	}
}

// defaultEmbeddingDims is the vector width every embedding provider is
// built with (mock, local and remote alike). There is no per-model width
// table: the configured model name does not change it.
const defaultEmbeddingDims = 384

func openEmbedProvider(cfg *config.Config) (embedprovider.Provider, error) {
	if !cfg.Embedding.Enabled {
		return embedprovider.NewMock(defaultEmbeddingDims), nil
	}

	switch cfg.Embedding.Provider {
	case "mock":
		return embedprovider.NewMock(defaultEmbeddingDims), nil
	case "local":
		return embedprovider.NewLocal("sourcerack-embed", 8121, defaultEmbeddingDims, 8192), nil
	case "remote":
		return embedprovider.NewRemote(cfg.Embedding.RemoteURL, cfg.Embedding.RemoteAPIKey, defaultEmbeddingDims, 8192), nil
	default:
		return nil, fmt.Errorf("unknown embedding.provider %q", cfg.Embedding.Provider)
	}
}

// scope builds a query.Scope from the persistent --repos/--all-repos/
// --group/--commit flags shared by every query subcommand.
func scope() query.Scope {
	return query.Scope{
		RepoIDs:  repoFlags,
		AllRepos: allRepos,
		Group:    groupFlag,
		Commit:   commitFlag,
	}
}
