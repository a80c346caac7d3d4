package game

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveConfiguration writes a YAML snapshot of cfg to path, creating parent
// directories as needed.
func SaveConfiguration(path string, cfg Configuration) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("game: marshal configuration: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("game: create snapshot dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("game: write configuration snapshot (%s): %w", path, err)
	}
	return nil
}

// LoadConfiguration reads a snapshot written by SaveConfiguration.
func LoadConfiguration(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("game: read configuration snapshot (%s): %w", path, err)
	}
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("game: parse configuration snapshot (%s): %w", path, err)
	}
	return cfg, nil
}
