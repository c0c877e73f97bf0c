package registry

import (
	"context"
	"os"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/basinforge/skillforge/pkg/ferr"
)

var nameFolder = cases.Fold()

// foldName normalizes a skill name for case-insensitive lookup, using
// Unicode case-folding (x/text/cases) rather than strings.ToLower so
// non-ASCII skill names normalize correctly too.
func foldName(name string) string {
	return nameFolder.String(name)
}

// Store is the on-disk YAML-backed registry manifest. It is safe for
// concurrent reads; writes (Put/Remove) take an exclusive lock and
// rewrite the whole file, matching the reference's single-writer
// save_registry model.
type Store struct {
	path string
	mu   sync.RWMutex
}

// NewStore opens (without yet requiring the existence of) a registry
// manifest file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (manifest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return manifest{}, nil
	}
	if err != nil {
		return manifest{}, &ferr.StoreError{Op: "read registry", Cause: err}
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{}, &ferr.StoreError{Op: "parse registry", Cause: err}
	}
	return m, nil
}

func (s *Store) save(m manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return &ferr.StoreError{Op: "marshal registry", Cause: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &ferr.StoreError{Op: "write registry", Cause: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &ferr.StoreError{Op: "commit registry", Cause: err}
	}
	return nil
}

// Get returns the entry for name, or *ferr.NotFound if absent. Lookup
// is case-folded so "WriteNote" and "writenote" resolve the same entry.
func (s *Store) Get(ctx context.Context, name string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	folded := foldName(name)
	for _, e := range m.Skills {
		if foldName(e.Name) == folded {
			return e, nil
		}
	}
	return Entry{}, &ferr.NotFound{Kind: "registry-entry", ID: name}
}

// List returns every registered entry.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	return m.Skills, nil
}

// Put removes any prior entry with the same name (case-folded) and
// appends entry, matching the promote step's replace semantics:
// "remove any prior entry with the same name; append a new entry".
func (s *Store) Put(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	folded := foldName(entry.Name)
	kept := m.Skills[:0]
	for _, e := range m.Skills {
		if foldName(e.Name) != folded {
			kept = append(kept, e)
		}
	}
	m.Skills = append(kept, entry)
	return s.save(m)
}

// Remove deletes the entry for name, if present. Absence is not an
// error: removal is how capability revocation works in this system
// (spec.md non-goals exclude signature revocation), and revoking an
// already-revoked skill is idempotent.
func (s *Store) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load()
	if err != nil {
		return err
	}
	folded := foldName(name)
	kept := m.Skills[:0]
	for _, e := range m.Skills {
		if foldName(e.Name) != folded {
			kept = append(kept, e)
		}
	}
	m.Skills = kept
	return s.save(m)
}
