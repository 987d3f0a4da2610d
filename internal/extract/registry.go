package extract

import (
	"context"
	"fmt"

	"github.com/sourcerack/sourcerack/internal/langreg"
	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Registry dispatches to the right Extractor for a language id.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a registry with the Go extractor plus one
// tree-sitter-backed extractor per core language sharing langreg's
// grammar cache.
func NewRegistry(languages *langreg.Registry) *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.extractors["go"] = &goExtractor{}
	for _, id := range []string{"python", "typescript", "tsx", "javascript", "rust", "java", "php", "ruby", "c"} {
		r.extractors[id] = &treeSitterExtractor{languageID: id, registry: languages}
	}
	return r
}

// Extract dispatches to the language's extractor, recovering from any
// panic and turning it into ErrExtractionFailed with an empty Result, so
// one malformed file never aborts indexing a whole commit (spec §4.4,
// §7's per-file failure isolation policy).
func (r *Registry) Extract(ctx context.Context, languageID, path string, source []byte) (result Result, err error) {
	extractor, ok := r.extractors[languageID]
	if !ok {
		return Result{}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{}
			err = sqerr.New(sqerr.KindExtractionFailed, path, fmt.Errorf("panic: %v", rec))
		}
	}()

	return extractor.Extract(ctx, path, source)
}
