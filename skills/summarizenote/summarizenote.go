// Package summarizenote is an example leaf skill (spec.md §8):
// summarizes an existing vault note via the LLM gateway's generate
// call, falling back to a truncated excerpt when the gateway is
// unavailable or returns an unparseable response. Ported from
// kavi.skills.summarize_note.
package summarizenote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/llmgateway"
	"github.com/basinforge/skillforge/pkg/skill"
)

const fallbackPrefix = "[Fallback summary] "
const fallbackChars = 500

// Skill summarizes a vault note, one file read and one gateway call per call.
type Skill struct {
	Dir     string
	Gateway llmgateway.Gateway
}

func New(dir string, gateway llmgateway.Gateway) func() skill.Skill {
	return func() skill.Skill {
		return &Skill{Dir: dir, Gateway: gateway}
	}
}

func (s *Skill) Name() string                   { return "summarize_note" }
func (s *Skill) EffectClass() skill.EffectClass { return skill.EffectReadOnly }

func (s *Skill) Description() string {
	return "summarizes an existing markdown note from the vault"
}

func (s *Skill) InputSchema() skill.Schema {
	return skill.Schema{
		Raw:      `{"type":"object","properties":{"path":{"type":"string"},"style":{"type":"string"}},"required":["path"]}`,
		Required: []string{"path"},
		Scalars:  map[string]string{"path": "string", "style": "string", "max_chars": "number"},
	}
}

func (s *Skill) OutputSchema() skill.Schema {
	return skill.Schema{
		Raw:      `{"type":"object","properties":{"path":{"type":"string"},"summary":{"type":"string"},"used_model":{"type":"string"}},"required":["path","summary","used_model"]}`,
		Required: []string{"path", "summary", "used_model"},
	}
}

func (s *Skill) Validate(raw map[string]any) (map[string]any, error) {
	p, ok := raw["path"].(string)
	if !ok || strings.TrimSpace(p) == "" {
		return nil, &ferr.ValidationError{Field: "path", Message: "must be a non-empty string"}
	}
	if path.IsAbs(p) || strings.Contains(p, "..") {
		return nil, &ferr.ValidationError{Field: "path", Message: "must be a relative path without traversal"}
	}
	style, _ := raw["style"].(string)
	if style != "paragraph" {
		style = "bullet"
	}
	maxChars := 12000
	if f, ok := raw["max_chars"].(float64); ok {
		maxChars = int(f)
	}
	return map[string]any{"path": p, "style": style, "max_chars": maxChars}, nil
}

func readNote(target string) (string, error) {
	info, err := os.Lstat(target)
	if err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return "", fmt.Errorf("symlinks not allowed: %s", target)
	}
	if info.IsDir() {
		return "", fmt.Errorf("not a file: %s", target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type generateResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

func (s *Skill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	relPath := input["path"].(string)
	style := input["style"].(string)
	maxChars := input["max_chars"].(int)

	target := path.Join(s.Dir, relPath)
	content, err := readNote(target)
	if err != nil {
		return nil, &ferr.ExecutionError{SkillName: s.Name(), Cause: err}
	}

	truncated := len(content) > maxChars
	if truncated {
		content = content[:maxChars]
	}

	prompt := fmt.Sprintf(
		"Summarize the following markdown note in %s style.\n"+
			"Return ONLY a JSON object with keys:\n"+
			"- \"summary\": a string summary\n"+
			"- \"key_points\": a list of strings with key points\n\n"+
			"Note content:\n%s", style, content,
	)

	if s.Gateway == nil {
		return fallbackOutput(relPath, content, truncated, "GATEWAY_UNAVAILABLE"), nil
	}

	raw, genErr := s.Gateway.Generate(ctx, []llmgateway.Message{{Role: "user", Content: prompt}})
	if genErr != nil {
		code := "GATEWAY_ERROR"
		if errors.Is(genErr, llmgateway.ErrUnavailable) {
			code = "GATEWAY_UNAVAILABLE"
		}
		return fallbackOutput(relPath, content, truncated, code), nil
	}

	var parsed generateResponse
	if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr != nil || parsed.Summary == "" {
		return fallbackOutput(relPath, content, truncated, "GATEWAY_BAD_RESPONSE"), nil
	}

	return map[string]any{
		"path":       relPath,
		"summary":    parsed.Summary,
		"key_points": parsed.KeyPoints,
		"truncated":  truncated,
		"used_model": "generate",
	}, nil
}

func fallbackOutput(relPath, content string, truncated bool, code string) map[string]any {
	excerpt := content
	if len(excerpt) > fallbackChars {
		excerpt = excerpt[:fallbackChars]
	}
	return map[string]any{
		"path":       relPath,
		"summary":    fallbackPrefix + excerpt,
		"key_points": []string{},
		"truncated":  truncated,
		"used_model": "fallback",
		"error":      code,
	}
}
