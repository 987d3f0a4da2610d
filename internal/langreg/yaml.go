package langreg

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultsYAML []byte

type yamlTable struct {
	Languages []yamlLanguage `yaml:"languages"`
}

type yamlLanguage struct {
	ID             string   `yaml:"id"`
	Extensions     []string `yaml:"extensions"`
	Basenames      []string `yaml:"basenames"`
	GrammarPackage string   `yaml:"grammar_package"`
	Tier           string   `yaml:"tier"`
}

// LoadDefaults parses the embedded YAML language table and registers every
// entry, the baseline spec §4.2 describes before any project override is
// applied. New builds registries pre-populated with this table already, so
// callers only need LoadDefaults when they've constructed a bare Registry.
func LoadDefaults(r *Registry) error {
	return loadYAML(r, defaultsYAML)
}

// LoadOverrideFile merges a project-local override file (same shape as
// defaults.yml) into the registry, replacing any entry with a matching id.
func LoadOverrideFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read language override file: %w", err)
	}
	return loadYAML(r, data)
}

func loadYAML(r *Registry, data []byte) error {
	var table yamlTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse language table: %w", err)
	}
	for _, l := range table.Languages {
		tier := TierCore
		if l.Tier == string(TierOptional) {
			tier = TierOptional
		}
		r.Register(Language{
			ID:             l.ID,
			Extensions:     l.Extensions,
			Basenames:      l.Basenames,
			GrammarPackage: l.GrammarPackage,
			Tier:           tier,
		})
	}
	return nil
}
