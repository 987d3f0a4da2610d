// Package contenttype classifies a file into one of the three buckets the
// Vector Storage filter (spec §6) groups search results by: docs, config,
// or code.
package contenttype

import (
	"path/filepath"
	"strings"
)

// Type is the closed enumeration spec §6 names for the Vector filter's
// content_type field.
type Type string

const (
	Docs   Type = "docs"
	Config Type = "config"
	Code   Type = "code"
)

var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".rst":      true,
}

var configExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
	".ini":  true,
	".xml":  true,
	".env":  true,
}

// Classify derives a Type from a path and its already-resolved language,
// per spec §6: "docs for Markdown/RST, config for JSON/YAML/TOML/INI/XML/
// env/*rc, else code".
func Classify(path, language string) Type {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	if docExtensions[ext] {
		return Docs
	}
	if configExtensions[ext] || strings.HasSuffix(base, "rc") {
		return Config
	}
	return Code
}
