package query

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

const (
	defaultMaxModules  = 10
	defaultMaxHotspots = 10
)

var entryPointNames = map[string]bool{
	"main": true, "index": true, "cli": true, "server": true, "app": true,
}

// CodebaseSummaryRequest is spec §4.11's codebase_summary.
type CodebaseSummaryRequest struct {
	Scope               Scope
	IncludeHotspots     bool
	IncludeDependencies bool
	MaxModules          int
	MaxHotspots         int
}

// ModuleStat is one entry in codebase_summary's top-modules-by-symbol-count
// listing.
type ModuleStat struct {
	Module      string `json:"module"`
	SymbolCount int    `json:"symbol_count"`
}

// Hotspot is one entry in codebase_summary's highest-incoming-usage
// ranking.
type Hotspot struct {
	Symbol     sqi.Symbol `json:"symbol"`
	UsageCount int        `json:"usage_count"`
}

// CodebaseSummaryResponse is codebase_summary's result envelope.
type CodebaseSummaryResponse struct {
	Response
	TotalFiles           int            `json:"total_files"`
	TotalSymbols         int            `json:"total_symbols"`
	TotalUsages          int            `json:"total_usages"`
	TotalImports         int            `json:"total_imports"`
	ByKind               map[string]int `json:"by_kind"`
	ByLanguage           map[string]int `json:"by_language"`
	TopModules           []ModuleStat   `json:"top_modules,omitempty"`
	EntryPoints          []string       `json:"entry_points"`
	Hotspots             []Hotspot      `json:"hotspots,omitempty"`
	ExternalDependencies []string       `json:"external_dependencies,omitempty"`
}

// CodebaseSummary aggregates file/symbol/usage/import counts, per-language
// breakdowns, conventional entry points, and (optionally) usage hotspots
// and external dependencies, across every repo in scope.
func (e *Engine) CodebaseSummary(ctx context.Context, req CodebaseSummaryRequest) CodebaseSummaryResponse {
	start := time.Now()
	maxModules := req.MaxModules
	if maxModules <= 0 {
		maxModules = defaultMaxModules
	}
	maxHotspots := req.MaxHotspots
	if maxHotspots <= 0 {
		maxHotspots = defaultMaxHotspots
	}

	repos, err := e.resolveScope(ctx, req.Scope)
	if err != nil {
		return CodebaseSummaryResponse{Response: fail(start, err)}
	}

	resp := CodebaseSummaryResponse{
		Response:   ok(start),
		ByKind:     make(map[string]int),
		ByLanguage: make(map[string]int),
	}
	moduleCounts := make(map[string]int)
	entryPointSet := make(map[string]bool)
	externalSet := make(map[string]bool)
	type scoredSymbol struct {
		sym   sqi.Symbol
		count int
	}
	var hotspotCandidates []scoredSymbol

	for _, r := range repos {
		fileBlobs, err := e.Meta.GetFileBlobs(ctx, r.CommitID)
		if err != nil {
			return CodebaseSummaryResponse{Response: fail(start, err)}
		}
		resp.TotalFiles += len(fileBlobs)
		for filePath := range fileBlobs {
			if lang, ok := e.Languages.LanguageFor(filePath); ok {
				resp.ByLanguage[lang.ID]++
			}
			base := path.Base(filePath)
			name := strings.TrimSuffix(base, path.Ext(base))
			if entryPointNames[strings.ToLower(name)] {
				entryPointSet[filePath] = true
			}
		}

		kindCounts, err := e.SQI.CountSymbolsByKind(ctx, r.CommitID)
		if err != nil {
			return CodebaseSummaryResponse{Response: fail(start, err)}
		}
		for k, c := range kindCounts {
			resp.ByKind[k] += c
			resp.TotalSymbols += c
		}

		usageCount, err := e.SQI.CountUsages(ctx, r.CommitID)
		if err != nil {
			return CodebaseSummaryResponse{Response: fail(start, err)}
		}
		resp.TotalUsages += usageCount

		importCount, err := e.SQI.CountImports(ctx, r.CommitID)
		if err != nil {
			return CodebaseSummaryResponse{Response: fail(start, err)}
		}
		resp.TotalImports += importCount

		symbols, err := e.SQI.SymbolsInCommit(ctx, r.CommitID)
		if err != nil {
			return CodebaseSummaryResponse{Response: fail(start, err)}
		}
		for _, sym := range symbols {
			moduleCounts[path.Dir(sym.FilePath)]++
		}

		if req.IncludeHotspots {
			usageCounts, err := e.SQI.UsageCountsBySymbol(ctx, r.CommitID)
			if err != nil {
				return CodebaseSummaryResponse{Response: fail(start, err)}
			}
			symByID := make(map[int64]sqi.Symbol, len(symbols))
			for _, sym := range symbols {
				symByID[sym.ID] = sym
			}
			for id, count := range usageCounts {
				if sym, ok := symByID[id]; ok {
					hotspotCandidates = append(hotspotCandidates, scoredSymbol{sym: sym, count: count})
				}
			}
		}

		if req.IncludeDependencies {
			imports, err := e.SQI.ImportsInCommit(ctx, r.CommitID)
			if err != nil {
				return CodebaseSummaryResponse{Response: fail(start, err)}
			}
			for _, imp := range imports {
				if _, internal := fileBlobs[imp.ResolvedPath]; internal {
					continue
				}
				externalSet[moduleRoot(imp.ModuleSpecifier)] = true
			}
		}
	}

	for mod, count := range moduleCounts {
		resp.TopModules = append(resp.TopModules, ModuleStat{Module: mod, SymbolCount: count})
	}
	sort.Slice(resp.TopModules, func(i, j int) bool { return resp.TopModules[i].SymbolCount > resp.TopModules[j].SymbolCount })
	if len(resp.TopModules) > maxModules {
		resp.TopModules = resp.TopModules[:maxModules]
	}

	for ep := range entryPointSet {
		resp.EntryPoints = append(resp.EntryPoints, ep)
	}
	sort.Strings(resp.EntryPoints)

	if req.IncludeHotspots {
		sort.Slice(hotspotCandidates, func(i, j int) bool { return hotspotCandidates[i].count > hotspotCandidates[j].count })
		if len(hotspotCandidates) > maxHotspots {
			hotspotCandidates = hotspotCandidates[:maxHotspots]
		}
		for _, c := range hotspotCandidates {
			resp.Hotspots = append(resp.Hotspots, Hotspot{Symbol: c.sym, UsageCount: c.count})
		}
	}

	if req.IncludeDependencies {
		for dep := range externalSet {
			resp.ExternalDependencies = append(resp.ExternalDependencies, dep)
		}
		sort.Strings(resp.ExternalDependencies)
	}

	return resp
}

// moduleRoot groups a module specifier by its conventional "package" root:
// the full specifier for scoped npm packages (@scope/name), the first
// path segment for plain npm/Go-style packages, and the first two
// dot-separated segments for dotted module paths (Python). Matches the
// teacher's module_path denormalization, which groups by package prefix
// rather than the full specifier.
func moduleRoot(specifier string) string {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
		return specifier
	}
	if idx := strings.Index(specifier, "/"); idx >= 0 {
		return specifier[:idx]
	}
	if idx := strings.Index(specifier, "."); idx >= 0 {
		rest := specifier[idx+1:]
		if idx2 := strings.Index(rest, "."); idx2 >= 0 {
			return specifier[:idx+1+idx2]
		}
		return specifier
	}
	return specifier
}
