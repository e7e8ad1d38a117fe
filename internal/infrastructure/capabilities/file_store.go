// Package capabilities provides persistence and operator interaction for
// capability approvals.
package capabilities

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/permrun/internal/domain/capabilities"
)

// FileStore provides file-based persistence for approved capabilities.
type FileStore struct {
	configPath string
}

// NewFileStore creates a new FileStore.
func NewFileStore(configPath string) *FileStore {
	return &FileStore{
		configPath: configPath,
	}
}

// ConfigPath returns the path to the grants file.
func (s *FileStore) ConfigPath() string {
	return s.configPath
}

type grantEntry struct {
	Kind   string   `yaml:"kind"`
	Params []string `yaml:"params,omitempty"`
}

// grantsFile represents the YAML structure of ~/.permrun/grants.yaml
type grantsFile struct {
	Approved []grantEntry `yaml:"approved"`
}

// Load loads approved capabilities.
// If the file does not exist, it returns no approvals without error.
func (s *FileStore) Load() ([]capabilities.Descriptor, error) {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read grants file: %w", err)
	}

	var cfg grantsFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse grants file: %w", err)
	}

	approved := make([]capabilities.Descriptor, 0, len(cfg.Approved))
	for i, entry := range cfg.Approved {
		d, err := capabilities.Restore(entry.Kind, entry.Params)
		if err != nil {
			return nil, fmt.Errorf("invalid grant at index %d: %w", i, err)
		}
		approved = appendUnique(approved, d)
	}

	return approved, nil
}

// Save writes the approved capabilities, replacing the file's content.
func (s *FileStore) Save(approved []capabilities.Descriptor) error {
	dir := filepath.Dir(s.configPath)
	//nolint:gosec // G301: 0o755 is standard for user config directories (~/.permrun)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := grantsFile{Approved: make([]grantEntry, 0, len(approved))}
	for _, d := range approved {
		cfg.Approved = append(cfg.Approved, grantEntry{
			Kind:   d.Kind().String(),
			Params: d.Params(),
		})
	}

	data, err := yaml.MarshalWithOptions(cfg, yaml.IndentSequence(true))
	if err != nil {
		return fmt.Errorf("failed to marshal grants to YAML: %w", err)
	}

	return os.WriteFile(s.configPath, data, 0o600)
}

// Revoke removes every approval whose flag equals flag. It reports whether
// anything was removed.
func (s *FileStore) Revoke(flag string) (bool, error) {
	approved, err := s.Load()
	if err != nil {
		return false, err
	}

	kept := approved[:0]
	removed := false
	for _, d := range approved {
		if d.Flag() == flag {
			removed = true
			continue
		}
		kept = append(kept, d)
	}

	if !removed {
		return false, nil
	}
	return true, s.Save(kept)
}

func appendUnique(list []capabilities.Descriptor, d capabilities.Descriptor) []capabilities.Descriptor {
	for _, existing := range list {
		if existing.Equals(d) {
			return list
		}
	}
	return append(list, d)
}
