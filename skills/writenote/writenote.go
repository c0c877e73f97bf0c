// Package writenote is an example leaf skill (spec.md §8): it appends
// a timestamped line of text to a note file under a fixed output
// directory. It is a black-box implementation detail of the forge's
// skill surface, not part of the forge's own core logic — used here as
// a fixture for the end-to-end propose/build/verify/promote/consume
// scenarios.
package writenote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/skill"
)

// Skill appends text to a note file.
type Skill struct {
	Dir string
}

// New constructs a WriteNoteSkill rooted at dir (skill.Constructor shape).
func New(dir string) func() skill.Skill {
	return func() skill.Skill { return Skill{Dir: dir} }
}

func (Skill) Name() string        { return "write_note" }
func (Skill) Description() string { return "appends a line of text to a note file" }
func (Skill) EffectClass() skill.EffectClass { return skill.EffectFileWrite }

func (Skill) InputSchema() skill.Schema {
	return skill.Schema{
		Raw:      `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		Required: []string{"text"},
		Scalars:  map[string]string{"text": "string"},
	}
}

func (Skill) OutputSchema() skill.Schema {
	return skill.Schema{
		Raw:      `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
		Required: []string{"path"},
		Scalars:  map[string]string{"path": "string"},
	}
}

func (Skill) Validate(raw map[string]any) (map[string]any, error) {
	text, ok := raw["text"].(string)
	if !ok || text == "" {
		return nil, &ferr.ValidationError{Field: "text", Message: "must be a non-empty string"}
	}
	return map[string]any{"text": text}, nil
}

func (s Skill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	text := input["text"].(string)
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, &ferr.ExecutionError{SkillName: s.Name(), Cause: err}
	}

	path := filepath.Join(s.Dir, "notes.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &ferr.ExecutionError{SkillName: s.Name(), Cause: err}
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().UTC().Format(time.RFC3339), text)
	if _, err := f.WriteString(line); err != nil {
		return nil, &ferr.ExecutionError{SkillName: s.Name(), Cause: err}
	}

	return map[string]any{"path": path}, nil
}
