package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := NewSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestProposalLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	p := &Proposal{
		Name:            "write_note",
		Description:     "writes a note to disk",
		IOSchema:        `{"required":["path","title","body"]}`,
		EffectClass:     "FILE_WRITE",
		RequiredSecrets: []string{},
		Status:          ProposalProposed,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, store.InsertProposal(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := store.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, ProposalProposed, got.Status)

	require.NoError(t, store.UpdateProposalStatus(ctx, p.ID, ProposalBuilt))
	got, err = store.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, ProposalBuilt, got.Status)

	_, err = store.GetProposal(ctx, "does-not-exist")
	var nf *ferr.NotFound
	require.ErrorAs(t, err, &nf)
}

func TestReproposalAllowsDuplicateNames(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p := &Proposal{Name: "dup", Description: "d", IOSchema: "{}", EffectClass: "READ_ONLY", Status: ProposalProposed, CreatedAt: time.Now()}
		require.NoError(t, store.InsertProposal(ctx, p))
	}
	list, err := store.ListProposals(ctx, ProposalFilter{Name: "dup"})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestBuildLineage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	proposal := &Proposal{Name: "n", Description: "d", IOSchema: "{}", EffectClass: "READ_ONLY", Status: ProposalProposed, CreatedAt: time.Now()}
	require.NoError(t, store.InsertProposal(ctx, proposal))

	b1 := &Build{ProposalID: proposal.ID, BranchName: "attempt-1", StartedAt: time.Now(), Status: BuildStarted, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, b1))

	b2 := &Build{ProposalID: proposal.ID, BranchName: "attempt-2", StartedAt: time.Now(), Status: BuildStarted, AttemptNumber: 2, ParentBuildID: &b1.ID}
	require.NoError(t, store.InsertBuild(ctx, b2))

	got, err := store.GetBuild(ctx, b2.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentBuildID)
	require.Equal(t, b1.ID, *got.ParentBuildID)
	require.Equal(t, 2, got.AttemptNumber)

	require.NoError(t, store.UpdateBuildResult(ctx, b2.ID, BuildSucceeded, "clean diff", time.Now()))
	got, err = store.GetBuild(ctx, b2.ID)
	require.NoError(t, err)
	require.Equal(t, BuildSucceeded, got.Status)
	require.NotNil(t, got.FinishedAt)
}

func TestGetLatestVerification(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	proposal := &Proposal{Name: "n", Description: "d", IOSchema: "{}", EffectClass: "READ_ONLY", Status: ProposalProposed, CreatedAt: time.Now()}
	require.NoError(t, store.InsertProposal(ctx, proposal))

	none, err := store.GetLatestVerification(ctx, proposal.ID)
	require.NoError(t, err)
	require.Nil(t, none)

	older := &Verification{ProposalID: proposal.ID, Status: VerificationFailed, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.InsertVerification(ctx, older))
	newer := &Verification{ProposalID: proposal.ID, Status: VerificationPassed, CreatedAt: time.Now()}
	require.NoError(t, store.InsertVerification(ctx, newer))

	latest, err := store.GetLatestVerification(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, newer.ID, latest.ID)
	require.Equal(t, VerificationPassed, latest.Status)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store1, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	// Reopening an already-current ledger must be a no-op, not an error.
	store2, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store2.Close())
}

func TestArtifactRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := &Artifact{Kind: ArtifactSkillSpec, Path: "out/skill_spec_1.md", SHA256: "deadbeef", RelatedID: "prop-1", CreatedAt: time.Now()}
	require.NoError(t, store.InsertArtifact(ctx, a))

	got, err := store.GetArtifact(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, a.SHA256, got.SHA256)

	list, err := store.ListArtifacts(ctx, "prop-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
