// Package mapping keeps the per-file column-role configurations.
package mapping

import (
	"sync"

	"github.com/drcash-dev/drcash/internal/model"
)

// Key addresses one configuration: a bank file, or the tax singleton.
type Key struct {
	Document model.DocumentType
	File     model.FileIdentity
}

// BankKey returns the key for a bank file.
func BankKey(id model.FileIdentity) Key {
	return Key{Document: model.DocumentBank, File: id}
}

// TaxKey returns the singleton tax key.
func TaxKey() Key {
	return Key{Document: model.DocumentTax}
}

// Store is an in-memory collection of mapping configs, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	configs map[Key]model.MappingConfig
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{configs: make(map[Key]model.MappingConfig)}
}

// Get returns a copy of the config for key, or an empty config.
func (s *Store) Get(key Key) model.MappingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[key].Clone()
}

// Set merges the non-nil fields of patch into the config for key.
func (s *Store) Set(key Key, patch model.MappingConfig) model.MappingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.configs[key]
	patch = patch.Clone()
	if patch.HeaderRow != nil {
		cfg.HeaderRow = patch.HeaderRow
	}
	if patch.Label != nil {
		cfg.Label = patch.Label
	}
	for _, role := range allRoles {
		if col, ok := patch.Column(role); ok {
			cfg.SetColumn(role, col)
		}
	}
	s.configs[key] = cfg
	return cfg.Clone()
}

// ApplyDefaults fills every unset role of the config for key with the
// proposed column from res. Set fields are never touched. It reports
// whether anything changed; a second call with no edits in between is a no-op.
func (s *Store) ApplyDefaults(key Key, res model.InferenceResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.configs[key]
	changed := false
	for _, role := range model.RolesFor(key.Document) {
		if _, set := cfg.Column(role); set {
			continue
		}
		if col, ok := res.Default(role); ok {
			cfg.SetColumn(role, col)
			changed = true
		}
	}
	if changed {
		s.configs[key] = cfg
	}
	return changed
}

// IsComplete reports whether the config for key has every required field of doc.
func (s *Store) IsComplete(key Key, doc model.DocumentType) bool {
	return Complete(s.Get(key), doc)
}

// Delete drops the config for key.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, key)
}

// Rekey moves the config stored under from to to, replacing anything at to.
func (s *Store) Rekey(from, to Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[from]
	delete(s.configs, from)
	if ok {
		s.configs[to] = cfg
	} else {
		delete(s.configs, to)
	}
}

// Reset drops every config.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = make(map[Key]model.MappingConfig)
}

var allRoles = []model.Role{model.RoleAmount, model.RoleName, model.RoleMemo, model.RoleDate, model.RoleItem}
