package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/ledger"
)

// fakeBuilder simulates an external builder by writing the allowed
// files directly into the workspace, standing in for the real
// code-generation tool invoked out of band.
type fakeBuilder struct {
	writeFiles map[string]string // relative path -> content
	exitCode   int
}

func (b *fakeBuilder) Invoke(ctx context.Context, workspace string, packet Packet, timeout time.Duration) (BuildResult, error) {
	for rel, content := range b.writeFiles {
		path := filepath.Join(workspace, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return BuildResult{}, err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return BuildResult{}, err
		}
	}
	return BuildResult{Stdout: "done", ExitCode: b.exitCode, Duration: time.Millisecond}, nil
}

func setupDriver(t *testing.T, builder Builder) (*Driver, ledger.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := ledger.NewSQLite(context.Background(), filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobDir := filepath.Join(dir, "artifacts")
	blobStore, err := artifact.NewFileStore(blobDir)
	require.NoError(t, err)
	writer := artifact.NewWriter(blobStore, store)

	workParent := filepath.Join(dir, "sandboxes")
	require.NoError(t, os.MkdirAll(workParent, 0o755))

	return NewDriver(store, writer, builder, workParent, 10*time.Second), store
}

func insertProposedProposal(t *testing.T, store ledger.Store, name string) *ledger.Proposal {
	t.Helper()
	p := &ledger.Proposal{
		Name:        name,
		Description: "writes a note to disk",
		IOSchema:    `{"type":"object"}`,
		EffectClass: "FILE_WRITE",
		Status:      ledger.ProposalProposed,
	}
	require.NoError(t, store.InsertProposal(context.Background(), p))
	return p
}

func TestRunBuildSucceedsWhenBuilderProducesAllowedFiles(t *testing.T) {
	builder := &fakeBuilder{writeFiles: map[string]string{
		"skills/write_note.go":      "package skills",
		"skills/write_note_test.go": "package skills",
	}}
	driver, store := setupDriver(t, builder)
	proposal := insertProposedProposal(t, store, "write_note")

	projectRoot := t.TempDir()
	build, err := driver.RunBuild(context.Background(), proposal.ID, projectRoot)
	require.NoError(t, err)
	require.Equal(t, ledger.BuildSucceeded, build.Status)

	content, err := os.ReadFile(filepath.Join(projectRoot, "skills", "write_note.go"))
	require.NoError(t, err)
	require.Equal(t, "package skills", string(content))

	updated, err := store.GetProposal(context.Background(), proposal.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ProposalBuilt, updated.Status)
}

func TestRunBuildFailsWhenBuilderTouchesDisallowedPath(t *testing.T) {
	builder := &fakeBuilder{writeFiles: map[string]string{
		"skills/write_note.go":      "package skills",
		"skills/write_note_test.go": "package skills",
		"go.mod":                    "module tampered",
	}}
	driver, store := setupDriver(t, builder)
	proposal := insertProposedProposal(t, store, "write_note")

	projectRoot := t.TempDir()
	build, err := driver.RunBuild(context.Background(), proposal.ID, projectRoot)
	require.NoError(t, err)
	require.Equal(t, ledger.BuildFailed, build.Status)

	_, err = os.Stat(filepath.Join(projectRoot, "skills", "write_note.go"))
	require.True(t, os.IsNotExist(err))

	updated, err := store.GetProposal(context.Background(), proposal.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ProposalProposed, updated.Status)
}

func TestRunBuildFailsWhenBuilderWritesNothing(t *testing.T) {
	driver, store := setupDriver(t, &fakeBuilder{})
	proposal := insertProposedProposal(t, store, "write_note")

	build, err := driver.RunBuild(context.Background(), proposal.ID, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, ledger.BuildFailed, build.Status)
}

func TestRunBuildRefusesWrongProposalStatus(t *testing.T) {
	driver, store := setupDriver(t, &fakeBuilder{})
	proposal := insertProposedProposal(t, store, "write_note")
	require.NoError(t, store.UpdateProposalStatus(context.Background(), proposal.ID, ledger.ProposalTrusted))

	_, err := driver.RunBuild(context.Background(), proposal.ID, t.TempDir())
	require.Error(t, err)
}
