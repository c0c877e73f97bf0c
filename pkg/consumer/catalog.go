package consumer

import (
	"context"

	"github.com/basinforge/skillforge/pkg/skill"
)

// SkillInfo is the metadata a downstream caller needs to decide whether
// and how to invoke a trusted skill, grounded on shim.py's SkillInfo.
type SkillInfo struct {
	Name        string
	Description string
	EffectClass string
	Version     string
	SourceHash  string
	InputSchema skill.Schema
	OutputSchema skill.Schema
}

// TrustedSkills loads every registry entry, trust-verifying each one,
// and returns its I/O schema metadata. A single unloadable entry does
// not abort the listing; it is simply omitted, since a stale or
// tampered entry should not hide the rest of the catalog from callers.
func (s *Shim) TrustedSkills(ctx context.Context) ([]SkillInfo, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []SkillInfo
	for _, entry := range entries {
		sk, loadedEntry, err := s.loader.LoadSkill(ctx, entry.Name)
		if err != nil {
			continue
		}
		out = append(out, SkillInfo{
			Name:         entry.Name,
			Description:  sk.Description(),
			EffectClass:  loadedEntry.EffectClass,
			Version:      loadedEntry.Version,
			SourceHash:   loadedEntry.Hash,
			InputSchema:  sk.InputSchema(),
			OutputSchema: sk.OutputSchema(),
		})
	}
	return out, nil
}
