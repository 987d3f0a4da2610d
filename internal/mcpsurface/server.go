// Package mcpsurface exposes the structured query index (spec §6) as an MCP
// tool surface: one tool per C12 query operation plus index/gc, so an
// assistant can ask the same questions the sourcerack CLI answers.
//
// Grounded on the teacher's internal/mcp/server.go: a Server struct owning
// every long-lived handle, NewServer wiring stores and registering tools,
// Serve blocking on stdio with signal-driven shutdown, Close releasing
// everything NewServer opened.
package mcpsurface

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

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

const defaultEmbeddingDims = 384

// Server manages the MCP server lifecycle over an already-indexed store.
type Server struct {
	config    *config.Config
	db        *sql.DB
	sqi       *sqi.Store
	meta      *metastore.Store
	vectors   vectorstore.Store
	languages *langreg.Registry
	engine    *query.Engine
	mcp       *server.MCPServer
}

// NewServer opens every store the configuration names and registers one
// tool per query operation plus index/gc.
func NewServer(cfg *config.Config) (*Server, error) {
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

	mcpServer := server.NewMCPServer(
		"sourcerack-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &Server{
		config:    cfg,
		db:        db,
		sqi:       sqiStore,
		meta:      metaStore,
		vectors:   vectors,
		languages: languages,
		engine:    engine,
		mcp:       mcpServer,
	}

	addSymbolTools(mcpServer, engine)
	addImportTools(mcpServer, engine)
	addGraphTools(mcpServer, engine)
	addSummaryTool(mcpServer, engine)
	addIndexTools(mcpServer, s)

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases every handle NewServer opened.
func (s *Server) Close() error {
	var firstErr error
	if s.vectors != nil {
		if err := s.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// collector builds a garbage collector over the server's already-open
// stores.
func (s *Server) collector() *gc.Collector {
	return gc.New(s.meta, s.sqi, s.vectors)
}

// orchestratorFor builds a fresh indexing orchestrator over the server's
// already-open stores and the configured embedding provider.
func (s *Server) orchestratorFor() (*orchestrator.Orchestrator, error) {
	ck := chunker.New(s.languages)
	ex := extract.NewRegistry(s.languages)
	ep := endpoints.NewRegistry()

	embeds, err := openEmbedProvider(s.config)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(gitview.New(), s.languages, ck, ex, ep, s.sqi, s.meta, s.vectors, embeds, 4), nil
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
