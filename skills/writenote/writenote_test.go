package writenote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecuteAppendsNoteLine(t *testing.T) {
	dir := t.TempDir()
	sk := New(dir)()

	validated, err := sk.Validate(map[string]any{"text": "hello"})
	require.NoError(t, err)

	out, err := sk.Execute(context.Background(), validated)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	require.Contains(t, string(content), "hello")
	require.Equal(t, filepath.Join(dir, "notes.txt"), out["path"])
}

func TestValidateRejectsEmptyText(t *testing.T) {
	sk := New(t.TempDir())()
	_, err := sk.Validate(map[string]any{"text": ""})
	require.Error(t, err)
}
