package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML document at path onto cfg. Keys missing from the
// file keep their current values.
//
//	grid:
//	  width: 400
//	  height: 300
//	  spacing: 20
//	  obstacles: [[3, 4], [3, 5]]
//	sim:
//	  mode: oneshot
func LoadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode(data, cfg)
}

// Decode overlays a YAML document onto cfg.
func Decode(data []byte, cfg *AppConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}
