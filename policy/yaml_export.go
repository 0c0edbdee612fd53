package policy

import (
	"gopkg.in/yaml.v3"
)

// ExportYAML renders a normalised Config as YAML, for operators who keep
// the connector policy document under version control alongside the rest
// of a deployment's configuration. Grounded on 99souls-ariadne's
// engine/internal/runtime/runtime.go yaml.Marshal/Unmarshal round-trip.
func ExportYAML(cfg Config) ([]byte, error) {
	return yaml.Marshal(Normalize(cfg))
}

// ImportYAML parses a YAML policy document and normalises it before
// returning, the same way Service.SetPolicyConfig normalises on write.
func ImportYAML(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return Normalize(cfg), nil
}
