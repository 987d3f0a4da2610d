// Package endpoints implements the API Endpoint Extractor Registry (spec
// §4.5, C5): per-framework detection of HTTP/MCP routes from a file's
// source and its already-extracted imports. Confidence scoring and
// glob-based file-pattern signals are grounded on the teacher's
// internal/indexer/discovery.go FileDiscovery (glob.Compile(pattern, '/')
// ignore/include matching), retargeted from file discovery onto framework
// detection.
package endpoints

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/sourcerack/sourcerack/internal/extract"
	"github.com/sourcerack/sourcerack/internal/sqi"
)

// Detector describes one framework's detection signal and route parser.
type Detector struct {
	Framework     sqi.Framework
	Languages     []string
	ImportPattern *regexp.Regexp
	FilePattern   glob.Glob
	parseRoutes   func(path, source string) []sqi.Endpoint
}

func (d Detector) matchesLanguage(language string) bool {
	if len(d.Languages) == 0 {
		return true
	}
	for _, l := range d.Languages {
		if l == language {
			return true
		}
	}
	return false
}

// Confidence reports how strongly a file matches this detector, spec
// §4.5's `min(1.0, importMatches + fileMatches)`.
func (d Detector) Confidence(path string, imports []extract.Import) float64 {
	score := 0.0
	if d.ImportPattern != nil {
		for _, imp := range imports {
			if d.ImportPattern.MatchString(imp.ModuleSpecifier) {
				score += 1.0
				break
			}
		}
	}
	if d.FilePattern != nil && d.FilePattern.Match(normalizeSeparators(path)) {
		score += 1.0
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func normalizeSeparators(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

// Registry holds every known detector.
type Registry struct {
	detectors []Detector
}

// NewRegistry builds the default detector set, one per framework named in
// SPEC_FULL.md's C5 section.
func NewRegistry() *Registry {
	r := &Registry{}
	r.detectors = append(r.detectors,
		expressDetector(),
		fastifyDetector(),
		koaDetector(),
		fastAPIDetector(),
		flaskDetector(),
		djangoDetector(),
		railsDetector(),
		sinatraDetector(),
		nestJSDetector(),
		mcpDetector(),
	)
	return r
}

// Detect runs every registered detector against a file and returns the
// endpoints found by whichever detectors score above zero confidence.
func (r *Registry) Detect(path, language string, source []byte, imports []extract.Import) []sqi.Endpoint {
	text := string(source)
	var out []sqi.Endpoint
	for _, d := range r.detectors {
		if !d.matchesLanguage(language) {
			continue
		}
		if d.Confidence(path, imports) <= 0 {
			continue
		}
		for _, ep := range d.parseRoutes(path, text) {
			ep.Framework = d.Framework
			ep.FilePath = path
			out = append(out, ep)
		}
	}
	return out
}

func mustGlob(pattern string) glob.Glob {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		panic(err)
	}
	return g
}

// extractPathParams pulls `:name` and `{name}` path parameters from a
// route path, the one shared helper spec §4.5 calls for across every
// framework's path-parameter syntax.
func extractPathParams(path string) []sqi.EndpointParam {
	var params []sqi.EndpointParam
	colonParams := regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)
	braceParams := regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?::[^}]+)?\}`)

	for _, m := range colonParams.FindAllStringSubmatch(path, -1) {
		params = append(params, sqi.EndpointParam{Name: m[1], Location: sqi.LocationPath, Required: true})
	}
	for _, m := range braceParams.FindAllStringSubmatch(path, -1) {
		params = append(params, sqi.EndpointParam{Name: m[1], Location: sqi.LocationPath, Required: true})
	}
	return params
}

func lineOf(text string, byteOffset int) int {
	if byteOffset < 0 || byteOffset > len(text) {
		return 1
	}
	return strings.Count(text[:byteOffset], "\n") + 1
}
