package config

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema generated from the Config struct. It is
// used by RejectUnknownKeys.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	return r.Reflect(&Config{})
}

// RejectUnknownKeys walks a decoded settings map (as produced by
// viper.AllSettings, whose keys are lowercased by viper) against the schema
// generated from Config, failing on any key the schema doesn't define.
// mapstructure alone silently drops unrecognized keys during Unmarshal;
// this catches a typo'd config key before it's silently ignored.
func RejectUnknownKeys(settings map[string]interface{}) error {
	return rejectUnknown(Schema(), settings, "")
}

func rejectUnknown(schema *jsonschema.Schema, value interface{}, path string) error {
	obj, ok := value.(map[string]interface{})
	if !ok || schema == nil || schema.Properties == nil {
		return nil
	}

	allowed := map[string]*jsonschema.Schema{}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		allowed[strings.ToLower(pair.Key)] = pair.Value
	}

	for key, v := range obj {
		full := key
		if path != "" {
			full = path + "." + key
		}

		sub, ok := allowed[strings.ToLower(key)]
		if !ok {
			return fmt.Errorf("unknown configuration key %q", full)
		}

		// Map-typed fields (vectorStorage.options, groups.named) accept
		// arbitrary keys and aren't walked further. Struct sections carry
		// the reflector's FalseSchema here and are walked like the root.
		if sub.AdditionalProperties != nil && sub.AdditionalProperties != jsonschema.FalseSchema {
			continue
		}

		if err := rejectUnknown(sub, v, full); err != nil {
			return err
		}
	}
	return nil
}
