// Package extract implements the Symbol Extractor Registry (spec §4.4,
// C4): one extractor per language producing Symbol/Usage/Import rows from
// a parsed file. Generalizes the teacher's parsers.CodeExtraction (a
// Symbols/Definitions/Data overview) into the spec's richer per-entity
// rows, while keeping the teacher's one-walk-per-file traversal style
// (internal/indexer/parsers/python.go's extractStructure/walkTree).
package extract

import (
	"context"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

// Symbol is one definition found in a file. Fields that depend on commit
// context (RepoID, CommitID, ID, ParentSymbolID) are filled in by the
// orchestrator after insertion order is resolved (spec §5).
type Symbol struct {
	Name                 string
	QualifiedName        string
	Kind                 sqi.SymbolKind
	FilePath             string
	StartLine            int
	EndLine              int
	Visibility           string
	IsAsync              bool
	IsStatic             bool
	IsExported           bool
	ReturnType           string
	ParentQualifiedName  string
	ContentHash          string
	Parameters           []Parameter
	Docstring            *Docstring
}

// Parameter is one SymbolParameter, pre-link.
type Parameter struct {
	Position       int
	Name           string
	TypeAnnotation string
	IsOptional     bool
}

// Docstring is one SymbolDocstring, pre-link.
type Docstring struct {
	DocType     sqi.DocType
	RawText     string
	Description string
}

// Usage is one reference to a symbol by name, pre-link (spec §3's Usage,
// resolved to a definition_symbol_id later by internal/linker).
type Usage struct {
	SymbolName          string
	FilePath            string
	Line                int
	Column              int
	UsageType           sqi.UsageType
	EnclosingSymbolName string // qualified name of the enclosing definition, resolved by the linker
}

// Import is one import/require statement.
type Import struct {
	FilePath        string
	Line            int
	ImportType      sqi.ImportType
	ModuleSpecifier string
	ResolvedPath    string
	Bindings        []ImportBinding
}

// ImportBinding is one name bound by an Import.
type ImportBinding struct {
	ImportedName string
	LocalName    string
	IsTypeOnly   bool
}

// Result is one file's complete extraction.
type Result struct {
	Symbols []Symbol
	Usages  []Usage
	Imports []Import
}

// Extractor produces a Result from one file's source.
type Extractor interface {
	Extract(ctx context.Context, path string, source []byte) (Result, error)
}
