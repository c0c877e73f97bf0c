package searchnotes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/basinforge/skillforge/pkg/llmgateway"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestExecuteFallsBackToLexicalWhenGatewayUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "# Shopping List\nbuy milk and eggs\n")
	writeNote(t, dir, "b.md", "# Trip Plan\npack sunscreen and hiking boots\n")

	sk := New(dir, nil)()
	validated, err := sk.Validate(map[string]any{"query": "milk"})
	require.NoError(t, err)

	out, err := sk.Execute(context.Background(), validated)
	require.NoError(t, err)
	require.Equal(t, "lexical-fallback", out["used_model"])
	results := out["results"].([]map[string]any)
	require.NotEmpty(t, results)
	require.Equal(t, "a.md", results[0]["path"])
}

func TestExecuteReturnsEmptyResultsForEmptyVault(t *testing.T) {
	sk := New(t.TempDir(), nil)()
	validated, err := sk.Validate(map[string]any{"query": "anything"})
	require.NoError(t, err)

	out, err := sk.Execute(context.Background(), validated)
	require.NoError(t, err)
	require.Equal(t, "none", out["used_model"])
	require.Empty(t, out["results"])
}

func TestValidateRejectsEmptyQuery(t *testing.T) {
	sk := New(t.TempDir(), nil)()
	_, err := sk.Validate(map[string]any{"query": "  "})
	require.Error(t, err)
}

type stubEmbedGateway struct {
	vectors [][]float64
}

func (s *stubEmbedGateway) Generate(ctx context.Context, messages []llmgateway.Message) (string, error) {
	return "", nil
}

func (s *stubEmbedGateway) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return s.vectors, nil
}

func TestExecuteUsesEmbeddingsWhenGatewayAvailable(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "# One\nalpha\n")
	writeNote(t, dir, "b.md", "# Two\nbeta\n")

	gw := &stubEmbedGateway{vectors: [][]float64{{1, 0}, {1, 0}, {0, 1}}}
	sk := New(dir, gw)()
	validated, err := sk.Validate(map[string]any{"query": "alpha"})
	require.NoError(t, err)

	out, err := sk.Execute(context.Background(), validated)
	require.NoError(t, err)
	require.Equal(t, "embedding", out["used_model"])
	results := out["results"].([]map[string]any)
	require.Equal(t, "a.md", results[0]["path"])
}
