// Package langreg is the Language Registry (spec §4.2, C2): the table of
// known languages, their file-extension/basename matchers, and grammar
// availability, grounded on the teacher's per-language parser constructors
// (internal/indexer/parsers/*.go) generalized into a single lookup table
// instead of one constructor call per supported extension.
package langreg

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
	"golang.org/x/sync/singleflight"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Tier is the closed enumeration of spec §4.2's grammar tiers.
type Tier string

const (
	TierCore     Tier = "core"
	TierOptional Tier = "optional"
)

// Language describes one entry in the registry table.
type Language struct {
	ID             string
	Extensions     []string
	Basenames      []string
	GrammarPackage string
	Tier           Tier
}

// grammarLoader returns the loaded grammar, or nil for Go, which is
// special-cased through go/ast rather than tree-sitter (spec §4.3 and
// SPEC_FULL.md's C3 note on why the teacher's Go/tree-sitter split is kept).
type grammarLoader func() *sitter.Language

// Registry is the Language Registry.
type Registry struct {
	mu        sync.RWMutex
	languages map[string]Language
	loaders   map[string]grammarLoader
	loaded    map[string]*sitter.Language
	group     singleflight.Group
}

// New builds a registry pre-populated with the core tier: the eight
// languages this binary ships grammars for.
func New() *Registry {
	r := &Registry{
		languages: make(map[string]Language),
		loaders:   make(map[string]grammarLoader),
		loaded:    make(map[string]*sitter.Language),
	}
	if err := LoadDefaults(r); err != nil {
		// The embedded table is fixed at build time; a parse failure here
		// means the binary itself is broken, not a runtime condition.
		panic(err)
	}
	r.loaders["python"] = func() *sitter.Language { return sitter.NewLanguage(python.Language()) }
	r.loaders["ruby"] = func() *sitter.Language { return sitter.NewLanguage(ruby.Language()) }
	r.loaders["rust"] = func() *sitter.Language { return sitter.NewLanguage(rust.Language()) }
	r.loaders["java"] = func() *sitter.Language { return sitter.NewLanguage(java.Language()) }
	r.loaders["c"] = func() *sitter.Language { return sitter.NewLanguage(c.Language()) }
	r.loaders["php"] = func() *sitter.Language { return sitter.NewLanguage(php.LanguagePHP()) }
	r.loaders["typescript"] = func() *sitter.Language { return sitter.NewLanguage(typescript.LanguageTypescript()) }
	// tsx and javascript share the TypeScript grammar, same as the
	// teacher's own TypeScript parser handling .ts/.tsx/.js without a
	// distinct grammar per extension.
	r.loaders["tsx"] = r.loaders["typescript"]
	r.loaders["javascript"] = r.loaders["typescript"]
	return r
}

// LanguageFor resolves a repo-relative path to a registered language by
// extension first, then basename (Makefile/Dockerfile-style files).
func (r *Registry) LanguageFor(path string) (Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	base := filepath.Base(path)
	for _, l := range r.languages {
		for _, e := range l.Extensions {
			if e == ext {
				return l, true
			}
		}
		for _, b := range l.Basenames {
			if b == base {
				return l, true
			}
		}
	}
	return Language{}, false
}

// Register adds or overrides a language table entry, the user-override
// path of spec §4.2.
func (r *Registry) Register(l Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages[l.ID] = l
}

// EnsureGrammar loads (and caches) the tree-sitter grammar for a language
// ID, idempotently. Concurrent callers for the same language share one
// installation via singleflight, satisfying spec §4.2/§5's in-flight-set
// requirement. Returns nil, nil for "go", which has no tree-sitter grammar.
func (r *Registry) EnsureGrammar(ctx context.Context, languageID string) (*sitter.Language, error) {
	if languageID == "go" {
		return nil, nil
	}

	r.mu.RLock()
	if lang, ok := r.loaded[languageID]; ok {
		r.mu.RUnlock()
		return lang, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.group.Do(languageID, func() (any, error) {
		r.mu.RLock()
		loader, ok := r.loaders[languageID]
		r.mu.RUnlock()
		if !ok {
			return nil, sqerr.New(sqerr.KindGrammarUnavailable, languageID, nil)
		}
		lang := loader()

		r.mu.Lock()
		r.loaded[languageID] = lang
		r.mu.Unlock()
		return lang, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*sitter.Language), nil
}

// Languages returns every registered language, core and optional.
func (r *Registry) Languages() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Language, 0, len(r.languages))
	for _, l := range r.languages {
		out = append(out, l)
	}
	return out
}
