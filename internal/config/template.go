package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders Default as TOML.
func Template() ([]byte, error) {
	out, err := toml.Marshal(Default().file())
	if err != nil {
		return nil, fmt.Errorf("render config template: %w", err)
	}
	return out, nil
}

// WriteTemplate writes the default config to path. An existing file is kept
// unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	out, err := Template()
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
