package failure

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/ledger"
)

func setupResearcher(t *testing.T) (*Researcher, ledger.Store, artifact.Store, *artifact.Writer) {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.NewSQLite(context.Background(), filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs, err := artifact.NewFileStore(filepath.Join(dir, "artifacts"))
	require.NoError(t, err)
	writer := artifact.NewWriter(blobs, store)

	return NewResearcher(store, blobs, writer), store, blobs, writer
}

func TestResearchProducesNoteForFailedBuild(t *testing.T) {
	researcher, store, blobs, writer := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))

	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, Summary: "diff gate failed: out of scope change", AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))

	rawLog := "Violations: [skills/extra.go]\n"
	hash, err := blobs.Put(ctx, []byte(rawLog))
	require.NoError(t, err)
	require.NoError(t, store.InsertArtifact(ctx, &ledger.Artifact{
		Kind: ledger.ArtifactBuildLog, SHA256: hash, RelatedID: build.ID,
	}))
	_ = writer

	analysis, rec, err := researcher.Research(ctx, build.ID, "")
	require.NoError(t, err)
	require.Equal(t, KindGateViolation, analysis.Kind)
	require.Equal(t, ledger.ArtifactResearchNote, rec.Kind)
	require.Equal(t, proposal.ID, rec.RelatedID)

	content, err := blobs.Get(ctx, rec.SHA256)
	require.NoError(t, err)
	require.Contains(t, string(content), "Failure Classification: GATE_VIOLATION")
	require.Contains(t, string(content), "Disallowed files: skills/extra.go")
}

func TestResearchRefusesWhenNeitherBuildNorVerificationFailed(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalBuilt}
	require.NoError(t, store.InsertProposal(ctx, proposal))

	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildSucceeded}
	require.NoError(t, store.InsertBuild(ctx, build))

	_, _, err := researcher.Research(ctx, build.ID, "")
	require.Error(t, err)
}

func TestResearchAllowsWhenVerificationFailedEvenIfBuildSucceeded(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalBuilt}
	require.NoError(t, store.InsertProposal(ctx, proposal))

	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildSucceeded, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))
	require.NoError(t, store.InsertVerification(ctx, &ledger.Verification{
		ProposalID: proposal.ID, Status: ledger.VerificationFailed, InvariantOK: false,
	}))

	analysis, _, err := researcher.Research(ctx, build.ID, "")
	require.NoError(t, err)
	require.Equal(t, KindVerifyInvariant, analysis.Kind)
}

func TestCheckEscalationTriggersFiresRepeatedFailureAndSecurityClass(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))

	var lastBuild *ledger.Build
	for i := 0; i < 3; i++ {
		build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, AttemptNumber: i + 1, StartedAt: time.Now()}
		require.NoError(t, store.InsertBuild(ctx, build))
		lastBuild = build
	}

	original := "## Skill Specification\n- **Effect Class**: READ_ONLY\n"
	proposed := "## Skill Specification\n- **Effect Class**: MONEY\n"

	analysis := Analysis{Kind: KindVerifyPolicy, BuildID: lastBuild.ID}
	triggers, err := researcher.checkEscalationTriggers(ctx, analysis, original, proposed)
	require.NoError(t, err)
	require.Contains(t, triggers, TriggerRepeatedFailure)
	require.Contains(t, triggers, TriggerSecurityClass)
	require.Contains(t, triggers, TriggerPermissionWidening)
}

func TestCheckEscalationTriggersDoesNotFirePermissionWideningForSameEffectClass(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))
	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))

	packet := "## Skill Specification\n- **Effect Class**: FILE_WRITE\n"
	analysis := Analysis{Kind: KindBuildError, BuildID: build.ID}
	triggers, err := researcher.checkEscalationTriggers(ctx, analysis, packet, packet)
	require.NoError(t, err)
	require.NotContains(t, triggers, TriggerPermissionWidening)
}

func TestCheckEscalationTriggersFiresAmbiguousForUnknownKind(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))
	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))

	analysis := Analysis{Kind: KindUnknown, BuildID: build.ID}
	triggers, err := researcher.checkEscalationTriggers(ctx, analysis, "same", "same")
	require.NoError(t, err)
	require.Contains(t, triggers, TriggerAmbiguous)
	require.NotContains(t, triggers, TriggerLargeDiff)
}

func TestDiffRatioFlagsLargeRewrite(t *testing.T) {
	original := "line1\nline2\nline3\nline4"
	proposed := "totally\ndifferent\ncontent\nentirely\nplus extra"
	require.Greater(t, diffRatio(original, proposed), 0.5)
}
