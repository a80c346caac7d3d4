// Package screenshot persists frames captured from the harness.
package screenshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logs "github.com/danmuck/birdctl/internal/logging"
)

// DefaultDir is where frames land when no directory is configured.
const DefaultDir = "vision/Matlab/"

var ErrNameRequired = errors.New("screenshot: name required")

// Store writes each frame to Dir/name.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir}
}

// Save writes data to Dir/name, creating Dir if needed. name must not
// escape Dir.
func (s *Store) Save(name string, data []byte) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("screenshot: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("screenshot: write %s: %w", path, err)
	}
	logs.Debugf("screenshot.Save path=%q bytes=%d", path, len(data))
	return nil
}

// Path resolves name inside Dir.
func (s *Store) Path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("screenshot: name %q escapes %s", name, s.Dir)
	}
	return filepath.Join(s.Dir, clean), nil
}
