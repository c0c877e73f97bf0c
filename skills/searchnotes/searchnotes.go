// Package searchnotes is an example leaf skill (spec.md §8): semantic
// search over a vault of markdown notes, using the LLM gateway's embed
// call with a lexical-substring fallback when the gateway is
// unavailable. A black-box fixture exercising the consumer shim and
// chain executor against a READ_ONLY skill, ported from
// kavi.skills.search_notes.
package searchnotes

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/llmgateway"
	"github.com/basinforge/skillforge/pkg/skill"
)

const snippetChars = 200

type entry struct {
	path    string
	content string
	title   string
}

// Skill searches markdown files under Dir using Gateway embeddings,
// falling back to lexical token overlap when the gateway is down.
type Skill struct {
	Dir     string
	Gateway llmgateway.Gateway
}

// New returns a skill.Constructor bound to a vault directory and gateway.
func New(dir string, gateway llmgateway.Gateway) func() skill.Skill {
	return func() skill.Skill {
		return &Skill{Dir: dir, Gateway: gateway}
	}
}

func (s *Skill) Name() string                   { return "search_notes" }
func (s *Skill) EffectClass() skill.EffectClass { return skill.EffectReadOnly }

func (s *Skill) Description() string {
	return "semantic search over vault markdown notes with lexical fallback"
}

func (s *Skill) InputSchema() skill.Schema {
	return skill.Schema{
		Raw:      `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
		Required: []string{"query"},
		Scalars: map[string]string{
			"query":           "string",
			"top_k":           "number",
			"max_chars":       "number",
			"include_snippet": "boolean",
			"tag":             "string",
		},
	}
}

func (s *Skill) OutputSchema() skill.Schema {
	return skill.Schema{
		Raw:      `{"type":"object","properties":{"query":{"type":"string"},"results":{"type":"array"},"used_model":{"type":"string"}},"required":["query","results","used_model"]}`,
		Required: []string{"query", "results", "used_model"},
	}
}

func (s *Skill) Validate(raw map[string]any) (map[string]any, error) {
	query, _ := raw["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, &ferr.ValidationError{Field: "query", Message: "query must be a non-empty string"}
	}
	out := map[string]any{"query": query}
	out["top_k"] = intOrDefault(raw["top_k"], 5)
	out["max_chars"] = intOrDefault(raw["max_chars"], 12000)
	out["include_snippet"] = boolOrDefault(raw["include_snippet"], true)
	if tag, ok := raw["tag"].(string); ok {
		out["tag"] = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	}
	return out, nil
}

func intOrDefault(v any, def int) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}

func boolOrDefault(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func (s *Skill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	query := input["query"].(string)
	maxChars := intOrDefault(input["max_chars"], 12000)
	tag, _ := input["tag"].(string)
	includeSnippet := boolOrDefault(input["include_snippet"], true)
	topK := intOrDefault(input["top_k"], 5)

	entries, truncated := s.enumerateNotes(maxChars, tag)
	results := []map[string]any{}
	usedModel := "none"
	var execErr string

	if len(entries) == 0 {
		return map[string]any{
			"query": query, "results": results,
			"truncated_paths": truncated, "used_model": usedModel,
		}, nil
	}

	scored, err := s.semanticRank(ctx, query, entries)
	if errors.Is(err, llmgateway.ErrUnavailable) {
		scored = lexicalRank(query, entries)
		usedModel = "lexical-fallback"
		execErr = "GATEWAY_UNAVAILABLE"
	} else if err != nil {
		return nil, &ferr.ExecutionError{SkillName: s.Name(), Cause: err}
	} else {
		usedModel = "embedding"
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if topK < len(scored) {
		scored = scored[:topK]
	}
	for _, r := range scored {
		result := map[string]any{"path": r.entry.path, "score": roundTo(r.score, 4)}
		if r.entry.title != "" {
			result["title"] = r.entry.title
		}
		if includeSnippet {
			result["snippet"] = snippet(r.entry.content, query)
		}
		results = append(results, result)
	}

	out := map[string]any{
		"query": query, "results": results,
		"truncated_paths": truncated, "used_model": usedModel,
	}
	if execErr != "" {
		out["error"] = execErr
	}
	return out, nil
}

type scoredEntry struct {
	score float64
	entry entry
}

func (s *Skill) semanticRank(ctx context.Context, query string, entries []entry) ([]scoredEntry, error) {
	if s.Gateway == nil {
		return nil, llmgateway.ErrUnavailable
	}
	texts := make([]string, 0, len(entries)+1)
	texts = append(texts, query)
	for _, e := range entries {
		texts = append(texts, e.content)
	}
	vectors, err := s.Gateway.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]
	scored := make([]scoredEntry, len(entries))
	for i, e := range entries {
		scored[i] = scoredEntry{score: cosineSimilarity(queryVec, vectors[i+1]), entry: e}
	}
	return scored, nil
}

func lexicalRank(query string, entries []entry) []scoredEntry {
	tokens := strings.Fields(strings.ToLower(query))
	scored := make([]scoredEntry, len(entries))
	for i, e := range entries {
		scored[i] = scoredEntry{score: lexicalScore(tokens, e.content), entry: e}
	}
	return scored
}

func lexicalScore(tokens []string, content string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
	}
	for i := range b {
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func roundTo(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

func snippet(content, query string) string {
	lower := strings.ToLower(content)
	qLower := strings.ToLower(query)
	pos := strings.Index(lower, qLower)
	if pos == -1 {
		if len(content) > snippetChars {
			return strings.TrimSpace(content[:snippetChars])
		}
		return strings.TrimSpace(content)
	}
	start := pos - snippetChars/4
	if start < 0 {
		start = 0
	}
	end := start + snippetChars
	if end > len(content) {
		end = len(content)
	}
	return strings.TrimSpace(content[start:end])
}

func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}

func hasTag(content, tag string) bool {
	needle := "#" + tag
	return strings.Contains(content, needle)
}

func (s *Skill) enumerateNotes(maxChars int, tag string) ([]entry, []string) {
	var entries []entry
	var truncated []string

	_ = filepath.Walk(s.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		content := string(data)
		if tag != "" && !hasTag(content, tag) {
			return nil
		}
		rel, _ := filepath.Rel(s.Dir, path)
		rel = filepath.ToSlash(rel)
		if len(content) > maxChars {
			content = content[:maxChars]
			truncated = append(truncated, rel)
		}
		entries = append(entries, entry{path: rel, content: content, title: extractTitle(content)})
		return nil
	})

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	if truncated == nil {
		truncated = []string{}
	}
	return entries, truncated
}
