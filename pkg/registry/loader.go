package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/skill"
)

// Constructors maps a registry entry's module path to the skill
// constructor it names, standing in for the reference loader's
// importlib-based dynamic import: Go has no runtime dynamic loading, so
// the set of loadable skills is registered at process startup instead
// of resolved by string at call time.
type Constructors map[string]skill.Constructor

// Loader resolves and trust-verifies skills by name.
type Loader struct {
	store        *Store
	constructors Constructors
}

// NewLoader builds a Loader over a registry store and the known skill
// constructors.
func NewLoader(store *Store, constructors Constructors) *Loader {
	return &Loader{store: store, constructors: constructors}
}

// LoadSkill performs the five-step trust-verified load: entry lookup,
// hash presence, source resolution, hash comparison, instantiation.
// Trust is checked on every call, never cached.
func (l *Loader) LoadSkill(ctx context.Context, name string) (skill.Skill, Entry, error) {
	// 1. Look up entry by name.
	entry, err := l.store.Get(ctx, name)
	if err != nil {
		return nil, Entry{}, err
	}

	// 2. No hash recorded is itself a trust failure.
	if entry.Hash == "" {
		return nil, entry, &ferr.TrustError{SkillName: name, Reason: "no hash"}
	}

	// 3. Resolve the declared source file.
	if entry.SourcePath == "" {
		return nil, entry, &ferr.TrustError{SkillName: name, Reason: "no source path"}
	}
	data, err := os.ReadFile(entry.SourcePath)
	if err != nil {
		return nil, entry, &ferr.TrustError{SkillName: name, Reason: "source file unreadable: " + err.Error()}
	}

	// 4. Compare the current file hash to the pinned one.
	sum := sha256.Sum256(data)
	current := "sha256:" + hex.EncodeToString(sum[:])
	if current != entry.Hash {
		return nil, entry, &ferr.TrustError{SkillName: name, Reason: "failed trust check"}
	}

	// 5. Instantiate.
	ctor, ok := l.constructors[entry.ModulePath]
	if !ok {
		return nil, entry, &ferr.TrustError{SkillName: name, Reason: "module reference not registered: " + entry.ModulePath}
	}
	return ctor(), entry, nil
}

// CurrentHash computes the sha256:<hex> content hash of a source file,
// the same digest LoadSkill compares against the pinned entry hash.
func CurrentHash(sourcePath string) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", &ferr.StoreError{Op: "hash source", Cause: err}
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}
