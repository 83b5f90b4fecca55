package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultFileName is the config file used when no path is given.
const DefaultFileName = "codeharvest.toml"

// ConfigStore keeps settings in a TOML file. Tables are addressed with
// dotted keys, so [github] api_base_url reads as "github.api_base_url".
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// NewConfigStore opens the TOML file at path, or DefaultFileName when path
// is empty. A missing file reads as empty and is written on the first Set.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		path = DefaultFileName
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	values, err := readTOML(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return &ConfigStore{path: path, values: values}, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value and rewrites the file. On a write failure the value is
// not kept.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := writeTOML(s.path, s.values); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

func readTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	values := make(map[string]any, len(doc))
	flatten(values, "", doc)
	return values, nil
}

func writeTOML(path string, values map[string]any) error {
	data, err := toml.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// flatten copies doc into dst, joining nested table keys with dots.
func flatten(dst map[string]any, prefix string, doc map[string]any) {
	for k, v := range doc {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(dst, k, table)
			continue
		}
		dst[k] = v
	}
}
