// Package chunker implements the Parser/Chunker (spec §4.3, C3): turning a
// file's source into content chunks, one per definition the language's
// extractor can see, falling back to one whole-file chunk when a language
// isn't supported or parsing fails. Grounded on the teacher's
// internal/indexer/parser.go per-declaration walk, generalized from the
// teacher's three-way Symbols/Definitions/Data split into one flat Chunk
// list.
package chunker

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/tsutil"
)

// Chunk is one content-addressable unit of source, spec §4.3's Chunk
// shape.
type Chunk struct {
	Path       string
	Symbol     string
	SymbolType string
	Language   string
	StartLine  int
	EndLine    int
	Content    string
}

// Chunker turns source files into chunks.
type Chunker struct {
	registry *langreg.Registry
}

// New builds a Chunker over a shared Language Registry.
func New(registry *langreg.Registry) *Chunker {
	return &Chunker{registry: registry}
}

// Chunk produces the chunk list for one file. Errors are reserved for
// context cancellation; any parse failure instead returns the whole-file
// fallback chunk (spec §4.3 / §7's ParseFailed policy: indexing keeps
// going with it, not in place of an error).
func (c *Chunker) Chunk(ctx context.Context, path string, source []byte) ([]Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lang, ok := c.registry.LanguageFor(path)
	if !ok {
		return []Chunk{wholeFile(path, "", source)}, nil
	}

	if lang.ID == "go" {
		chunks, ok := chunkGo(path, source)
		if !ok {
			return []Chunk{wholeFile(path, lang.ID, source)}, nil
		}
		return chunks, nil
	}

	grammar, err := c.registry.EnsureGrammar(ctx, lang.ID)
	if err != nil || grammar == nil {
		return []Chunk{wholeFile(path, lang.ID, source)}, nil
	}

	chunks, ok := chunkTreeSitter(path, lang.ID, grammar, source)
	if !ok {
		return []Chunk{wholeFile(path, lang.ID, source)}, nil
	}
	return chunks, nil
}

func wholeFile(path, language string, source []byte) Chunk {
	lineCount := strings.Count(string(source), "\n") + 1
	return Chunk{
		Path:       path,
		Symbol:     "",
		SymbolType: "file",
		Language:   language,
		StartLine:  1,
		EndLine:    lineCount,
		Content:    string(source),
	}
}

func chunkTreeSitter(path, language string, grammar *sitter.Language, source []byte) ([]Chunk, bool) {
	cfg, ok := tsutil.Configs[language]
	if !ok || len(cfg.Definitions) == 0 {
		return nil, false
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, false
	}
	defer tree.Close()

	ruleByKind := make(map[string]tsutil.DefinitionRule, len(cfg.Definitions))
	for _, r := range cfg.Definitions {
		ruleByKind[r.NodeKind] = r
	}

	var chunks []Chunk
	tsutil.Walk(tree.RootNode(), func(n *sitter.Node) bool {
		if rule, ok := ruleByKind[n.Kind()]; ok {
			start, end := tsutil.Lines(n)
			chunks = append(chunks, Chunk{
				Path:       path,
				Symbol:     tsutil.NameOf(n, rule.NameField, source),
				SymbolType: rule.SymbolKind,
				Language:   language,
				StartLine:  start,
				EndLine:    end,
				Content:    tsutil.NodeText(n, source),
			})
		}
		return true
	})

	if len(chunks) == 0 {
		return nil, false
	}
	return chunks, true
}

func chunkGo(path string, source []byte) ([]Chunk, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, source, parser.ParseComments)
	if err != nil {
		return nil, false
	}

	var chunks []Chunk
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			chunks = append(chunks, goChunk(fset, source, path, d.Name.Name, symbolTypeForFunc(d), d.Pos(), d.End()))
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					chunks = append(chunks, goChunk(fset, source, path, s.Name.Name, symbolTypeForType(s), d.Pos(), d.End()))
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if name.Name == "_" {
							continue
						}
						kind := "variable"
						if d.Tok == token.CONST {
							kind = "constant"
						}
						chunks = append(chunks, goChunk(fset, source, path, name.Name, kind, d.Pos(), d.End()))
					}
				}
			}
		}
	}
	if len(chunks) == 0 {
		return nil, false
	}
	return chunks, true
}

func symbolTypeForFunc(d *ast.FuncDecl) string {
	if d.Recv != nil && len(d.Recv.List) > 0 {
		return "method"
	}
	return "function"
}

func symbolTypeForType(s *ast.TypeSpec) string {
	switch s.Type.(type) {
	case *ast.InterfaceType:
		return "interface"
	case *ast.StructType:
		return "class"
	default:
		return "type_alias"
	}
}

func goChunk(fset *token.FileSet, source []byte, path, symbol, symbolType string, start, end token.Pos) Chunk {
	startLine := fset.Position(start).Line
	endLine := fset.Position(end).Line
	lines := strings.Split(string(source), "\n")
	content := ""
	if startLine >= 1 && startLine <= len(lines) {
		e := endLine
		if e > len(lines) {
			e = len(lines)
		}
		content = strings.Join(lines[startLine-1:e], "\n")
	}
	return Chunk{
		Path:       path,
		Symbol:     symbol,
		SymbolType: symbolType,
		Language:   "go",
		StartLine:  startLine,
		EndLine:    endLine,
		Content:    content,
	}
}
