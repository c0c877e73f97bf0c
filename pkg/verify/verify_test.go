package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/policyscan"
)

func setupVerifier(t *testing.T, runner Runner, tools []Tool) (*Verifier, ledger.Store) {
	t.Helper()
	dir := t.TempDir()

	store, err := ledger.NewSQLite(context.Background(), filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobStore, err := artifact.NewFileStore(filepath.Join(dir, "artifacts"))
	require.NoError(t, err)
	writer := artifact.NewWriter(blobStore, store)

	scanner, err := policyscan.NewScanner(policyscan.Policy{ForbiddenImports: policyscan.DefaultForbiddenImports, ForbidDynamicExec: true})
	require.NoError(t, err)

	return NewVerifier(store, writer, scanner, runner, tools, 5*time.Second), store
}

func writeCleanSkill(t *testing.T, projectRoot string) string {
	t.Helper()
	skillDir := filepath.Join(projectRoot, "skills")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	path := filepath.Join(skillDir, "write_note.go")
	source := `package skills

import (
	"context"

	"github.com/basinforge/skillforge/pkg/skill"
)

type WriteNoteSkill struct{}

func (WriteNoteSkill) Name() string        { return "write_note" }
func (WriteNoteSkill) Description() string { return "writes a note" }
func (WriteNoteSkill) EffectClass() skill.EffectClass { return skill.EffectFileWrite }
func (WriteNoteSkill) InputSchema() skill.Schema  { return skill.Schema{} }
func (WriteNoteSkill) OutputSchema() skill.Schema { return skill.Schema{} }
func (WriteNoteSkill) Validate(raw map[string]any) (map[string]any, error) { return raw, nil }
func (WriteNoteSkill) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return nil, nil
}
`
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestRunPassesWhenAllChecksPass(t *testing.T) {
	stub := StubRunner{Results: map[string]CheckResult{
		"tests": {OK: true},
	}}
	verifier, store := setupVerifier(t, stub, []Tool{{Name: "tests", Command: []string{"true"}}})

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalBuilt}
	require.NoError(t, store.InsertProposal(context.Background(), proposal))

	projectRoot := t.TempDir()
	skillFile := writeCleanSkill(t, projectRoot)

	verification, err := verifier.Run(context.Background(), Request{
		ProposalID: proposal.ID, SkillFile: skillFile, ProjectRoot: projectRoot,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.VerificationPassed, verification.Status)

	updated, err := store.GetProposal(context.Background(), proposal.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ProposalVerified, updated.Status)
}

func TestRunFailsWhenToolFails(t *testing.T) {
	stub := StubRunner{Results: map[string]CheckResult{
		"tests": {OK: false, Detail: "2 failed"},
	}}
	verifier, store := setupVerifier(t, stub, []Tool{{Name: "tests", Command: []string{"false"}}})

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalBuilt}
	require.NoError(t, store.InsertProposal(context.Background(), proposal))

	projectRoot := t.TempDir()
	skillFile := writeCleanSkill(t, projectRoot)

	verification, err := verifier.Run(context.Background(), Request{
		ProposalID: proposal.ID, SkillFile: skillFile, ProjectRoot: projectRoot,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.VerificationFailed, verification.Status)

	updated, err := store.GetProposal(context.Background(), proposal.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ProposalBuilt, updated.Status, "status must not advance on a failed verification")
}

func TestRunFailsOnPolicyViolation(t *testing.T) {
	verifier, store := setupVerifier(t, StubRunner{}, nil)

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalBuilt}
	require.NoError(t, store.InsertProposal(context.Background(), proposal))

	projectRoot := t.TempDir()
	skillDir := filepath.Join(projectRoot, "skills")
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	skillFile := filepath.Join(skillDir, "write_note.go")
	source := `package skills

import "os/exec"

func run() { exec.Command("ls") }
`
	require.NoError(t, os.WriteFile(skillFile, []byte(source), 0o644))

	verification, err := verifier.Run(context.Background(), Request{
		ProposalID: proposal.ID, SkillFile: skillFile, ProjectRoot: projectRoot,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.VerificationFailed, verification.Status)
	require.False(t, verification.PolicyOK)
}
