package endpoints

import (
	"regexp"
	"strings"

	"github.com/sourcerack/sourcerack/internal/sqi"
)

func expressDetector() Detector {
	re := regexp.MustCompile(`(?:app|router)\.(get|post|put|patch|delete|options|head)\(\s*['"]([^'"]+)['"]`)
	return Detector{
		Framework:     sqi.FrameworkExpress,
		Languages:     []string{"javascript", "typescript", "tsx"},
		ImportPattern: regexp.MustCompile(`^express$`),
		parseRoutes:   regexRouteParser(re, 1, 2, "inline"),
	}
}

func fastifyDetector() Detector {
	re := regexp.MustCompile(`fastify\.(get|post|put|patch|delete|options|head)\(\s*['"]([^'"]+)['"]`)
	return Detector{
		Framework:     sqi.FrameworkFastify,
		Languages:     []string{"javascript", "typescript", "tsx"},
		ImportPattern: regexp.MustCompile(`^fastify$`),
		parseRoutes:   regexRouteParser(re, 1, 2, "inline"),
	}
}

func koaDetector() Detector {
	re := regexp.MustCompile(`router\.(get|post|put|patch|delete|options|head)\(\s*['"]([^'"]+)['"]`)
	return Detector{
		Framework:     sqi.FrameworkKoa,
		Languages:     []string{"javascript", "typescript", "tsx"},
		ImportPattern: regexp.MustCompile(`^koa(-router)?$`),
		parseRoutes:   regexRouteParser(re, 1, 2, "inline"),
	}
}

func nestJSDetector() Detector {
	controllerRe := regexp.MustCompile(`@Controller\(\s*['"]?([^'")]*)['"]?\s*\)`)
	methodRe := regexp.MustCompile(`@(Get|Post|Put|Patch|Delete|Options|Head)\(\s*['"]?([^'")]*)['"]?\s*\)`)
	return Detector{
		Framework:     sqi.FrameworkNestJS,
		Languages:     []string{"typescript", "tsx"},
		ImportPattern: regexp.MustCompile(`^@nestjs/`),
		parseRoutes: func(path, source string) []sqi.Endpoint {
			base := ""
			if m := controllerRe.FindStringSubmatch(source); m != nil {
				base = strings.Trim(m[1], "/")
			}
			var eps []sqi.Endpoint
			for _, idx := range methodRe.FindAllStringSubmatchIndex(source, -1) {
				route := joinRoute(base, source[idx[4]:idx[5]])
				line := lineOf(source, idx[0])
				eps = append(eps, sqi.Endpoint{
					HTTPMethod:  strings.ToUpper(source[idx[2]:idx[3]]),
					Path:        route,
					StartLine:   line,
					EndLine:     line,
					HandlerType: sqi.HandlerClassMethod,
					Params:      extractPathParams(route),
				})
			}
			return eps
		},
	}
}

func fastAPIDetector() Detector {
	re := regexp.MustCompile(`@(?:app|router)\.(get|post|put|patch|delete|options|head)\(\s*["']([^"']+)["']`)
	return Detector{
		Framework:     sqi.FrameworkFastAPI,
		Languages:     []string{"python"},
		ImportPattern: regexp.MustCompile(`^fastapi$`),
		parseRoutes:   regexRouteParser(re, 1, 2, "reference"),
	}
}

func flaskDetector() Detector {
	re := regexp.MustCompile(`@(?:app|bp)\.route\(\s*["']([^"']+)["'](?:.*methods\s*=\s*\[([^\]]*)\])?`)
	return Detector{
		Framework:     sqi.FrameworkFlask,
		Languages:     []string{"python"},
		ImportPattern: regexp.MustCompile(`^flask$`),
		parseRoutes: func(path, source string) []sqi.Endpoint {
			var eps []sqi.Endpoint
			for _, idx := range re.FindAllStringSubmatchIndex(source, -1) {
				route := source[idx[2]:idx[3]]
				line := lineOf(source, idx[0])
				methods := []string{"GET"}
				if idx[4] != -1 {
					methodsRaw := source[idx[4]:idx[5]]
					methods = nil
					for _, method := range strings.Split(methodsRaw, ",") {
						methods = append(methods, strings.ToUpper(strings.Trim(strings.TrimSpace(method), `"'`)))
					}
				}
				for _, method := range methods {
					eps = append(eps, sqi.Endpoint{
						HTTPMethod:  method,
						Path:        route,
						StartLine:   line,
						EndLine:     line,
						HandlerType: sqi.HandlerReference,
						Params:      extractPathParams(route),
					})
				}
			}
			return eps
		},
	}
}

func djangoDetector() Detector {
	re := regexp.MustCompile(`path\(\s*["']([^"']*)["']\s*,\s*([A-Za-z_.]+)`)
	return Detector{
		Framework:     sqi.FrameworkDjango,
		Languages:     []string{"python"},
		FilePattern:   mustGlob("**/urls.py"),
		ImportPattern: regexp.MustCompile(`^django\.urls$`),
		parseRoutes: func(path, source string) []sqi.Endpoint {
			var eps []sqi.Endpoint
			for _, idx := range re.FindAllStringSubmatchIndex(source, -1) {
				route := "/" + strings.TrimPrefix(source[idx[2]:idx[3]], "/")
				line := lineOf(source, idx[0])
				eps = append(eps, sqi.Endpoint{
					HTTPMethod:  "ALL",
					Path:        route,
					StartLine:   line,
					EndLine:     line,
					HandlerType: sqi.HandlerReference,
					HandlerName: source[idx[4]:idx[5]],
					Params:      extractPathParams(route),
				})
			}
			return eps
		},
	}
}

func railsDetector() Detector {
	re := regexp.MustCompile(`\b(get|post|put|patch|delete)\s+["']([^"']+)["']`)
	return Detector{
		Framework:   sqi.FrameworkRails,
		Languages:   []string{"ruby"},
		FilePattern: mustGlob("**/config/routes.rb"),
		parseRoutes: regexRouteParser(re, 1, 2, "controller_action"),
	}
}

func sinatraDetector() Detector {
	re := regexp.MustCompile(`\b(get|post|put|patch|delete)\s+["']([^"']+)["']\s*do`)
	return Detector{
		Framework:     sqi.FrameworkSinatra,
		Languages:     []string{"ruby"},
		ImportPattern: regexp.MustCompile(`^sinatra$`),
		parseRoutes:   regexRouteParser(re, 1, 2, "inline"),
	}
}

func mcpDetector() Detector {
	re := regexp.MustCompile(`(?:AddTool|server\.NewTool|mcp\.NewTool)\(\s*["']([^"']+)["']`)
	return Detector{
		Framework:     sqi.FrameworkMCP,
		Languages:     []string{"go"},
		ImportPattern: regexp.MustCompile(`mark3labs/mcp-go`),
		parseRoutes: func(path, source string) []sqi.Endpoint {
			var eps []sqi.Endpoint
			for _, idx := range re.FindAllStringSubmatchIndex(source, -1) {
				name := source[idx[2]:idx[3]]
				line := lineOf(source, idx[0])
				eps = append(eps, sqi.Endpoint{
					HTTPMethod:  "ALL",
					Path:        "mcp://" + name,
					StartLine:   line,
					EndLine:     line,
					HandlerType: sqi.HandlerReference,
					MCPToolName: name,
				})
			}
			return eps
		},
	}
}

func regexRouteParser(re *regexp.Regexp, methodGroup, pathGroup int, handlerType string) func(path, source string) []sqi.Endpoint {
	ht := sqi.HandlerType(handlerType)
	return func(path, source string) []sqi.Endpoint {
		var eps []sqi.Endpoint
		for _, idx := range re.FindAllStringSubmatchIndex(source, -1) {
			route := source[idx[pathGroup*2]:idx[pathGroup*2+1]]
			method := source[idx[methodGroup*2]:idx[methodGroup*2+1]]
			line := lineOf(source, idx[0])
			eps = append(eps, sqi.Endpoint{
				HTTPMethod:  strings.ToUpper(method),
				Path:        route,
				StartLine:   line,
				EndLine:     line,
				HandlerType: ht,
				Params:      extractPathParams(route),
			})
		}
		return eps
	}
}

func joinRoute(base, sub string) string {
	base = strings.Trim(base, "/")
	sub = strings.Trim(sub, "/")
	switch {
	case base == "" && sub == "":
		return "/"
	case base == "":
		return "/" + sub
	case sub == "":
		return "/" + base
	default:
		return "/" + base + "/" + sub
	}
}
