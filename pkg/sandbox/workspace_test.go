package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMirrorWorkspaceExcludesGitAndSecrets(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("SECRET=1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skills"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skills", "write_note.go"), []byte("package skills"), 0o644))

	workspaceParent := t.TempDir()
	workspace, err := MirrorWorkspace(root, workspaceParent)
	require.NoError(t, err)
	defer os.RemoveAll(workspace)

	_, err = os.Stat(filepath.Join(workspace, ".git"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(workspace, ".env"))
	require.True(t, os.IsNotExist(err))

	content, err := os.ReadFile(filepath.Join(workspace, "skills", "write_note.go"))
	require.NoError(t, err)
	require.Equal(t, "package skills", string(content))
}

func TestMirrorWorkspaceSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.go")
	require.NoError(t, os.WriteFile(target, []byte("package x"), 0o644))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link.go")))

	workspaceParent := t.TempDir()
	workspace, err := MirrorWorkspace(root, workspaceParent)
	require.NoError(t, err)
	defer os.RemoveAll(workspace)

	_, err = os.Stat(filepath.Join(workspace, "link.go"))
	require.True(t, os.IsNotExist(err))
}
