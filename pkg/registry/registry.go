// Package registry implements the trust loader (spec.md §4.5): a
// manifest of currently-trusted skills, each pinned to the SHA-256 of
// its source file. Every load re-verifies the hash; nothing is cached
// across loads, grounded on skills/loader.py's registry model.
package registry

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// Entry is one registry manifest row.
type Entry struct {
	Name            string   `yaml:"name"`
	ModulePath      string   `yaml:"module_path"`
	SourcePath      string   `yaml:"source_path"`
	Hash            string   `yaml:"hash"`
	EffectClass     string   `yaml:"effect_class"`
	RequiredSecrets []string `yaml:"required_secrets"`
	Version         string   `yaml:"version"`
	PromotedAt      time.Time `yaml:"promoted_at"`
}

// SemVer parses the entry's version, defaulting to 0.0.0 for entries
// promoted before versioning existed.
func (e Entry) SemVer() (*semver.Version, error) {
	if e.Version == "" {
		return semver.NewVersion("0.0.0")
	}
	return semver.NewVersion(e.Version)
}

// manifest is the on-disk shape: a named list of entries, matching the
// reference loader's `{"skills": [...]}` document.
type manifest struct {
	Skills []Entry `yaml:"skills"`
}
