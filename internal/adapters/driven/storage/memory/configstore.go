package memory

import (
	"sync"

	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
)

var (
	_ driven.ConfigStore    = (*ConfigStore)(nil)
	_ driven.WatermarkStore = (*ConfigStore)(nil)
)

// ConfigStore keeps settings and the snapshot watermark in memory. Values
// are held with the types a TOML round trip would give them (integers as
// int64), so settings code sees what it would see from config.toml.
type ConfigStore struct {
	mu        sync.RWMutex
	values    map[string]any
	watermark string
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	n, _ := v.(int64)
	return int(n)
}

func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

func (s *ConfigStore) Set(key string, value any) error {
	switch v := value.(type) {
	case int:
		value = int64(v)
	case int32:
		value = int64(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *ConfigStore) Save() error { return nil }

func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }

func (s *ConfigStore) SnapshotIdentity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermark
}

func (s *ConfigStore) SetSnapshotIdentity(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark = identity
	return nil
}
