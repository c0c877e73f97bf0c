package failure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/llmgateway"
)

type stubGateway struct {
	text string
	err  error
}

func (s stubGateway) Generate(ctx context.Context, messages []llmgateway.Message) (string, error) {
	return s.text, s.err
}

func (s stubGateway) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, nil
}

func TestAdviseRetryReturnsProposedPacketAndTriggers(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))
	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))

	gateway := stubGateway{text: "corrected packet, no network access"}
	advisor := NewAdvisor(researcher, gateway, rate.Limit(0), 5)

	analysis := Analysis{Kind: KindBuildError, BuildID: build.ID, Facts: []string{"Build failed: exit 1"}}
	proposed, triggers, err := advisor.AdviseRetry(ctx, proposal.ID, analysis, "original packet")
	require.NoError(t, err)
	require.Equal(t, "corrected packet, no network access", proposed)
	// Both packets are a single line and that line differs, so the diff
	// ratio is 1.0 and LARGE_DIFF is the only trigger that fires.
	require.Equal(t, []EscalationTrigger{TriggerLargeDiff}, triggers)
}

func TestAdviseRetryFallsBackToOriginalOnBlankResponse(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))
	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))

	gateway := stubGateway{text: "   "}
	advisor := NewAdvisor(researcher, gateway, rate.Limit(0), 5)

	analysis := Analysis{Kind: KindBuildError, BuildID: build.ID}
	proposed, _, err := advisor.AdviseRetry(ctx, proposal.ID, analysis, "original packet")
	require.NoError(t, err)
	require.Equal(t, "original packet", proposed)
}

func TestAdviseRetryEnforcesPerProposalRateLimit(t *testing.T) {
	researcher, store, _, _ := setupResearcher(t)
	ctx := context.Background()

	proposal := &ledger.Proposal{Name: "write_note", EffectClass: "FILE_WRITE", Status: ledger.ProposalProposed}
	require.NoError(t, store.InsertProposal(ctx, proposal))
	build := &ledger.Build{ProposalID: proposal.ID, Status: ledger.BuildFailed, AttemptNumber: 1}
	require.NoError(t, store.InsertBuild(ctx, build))

	gateway := stubGateway{text: "corrected"}
	advisor := NewAdvisor(researcher, gateway, rate.Limit(0), 1)

	analysis := Analysis{Kind: KindBuildError, BuildID: build.ID}
	_, _, err := advisor.AdviseRetry(ctx, proposal.ID, analysis, "original")
	require.NoError(t, err)

	_, _, err = advisor.AdviseRetry(ctx, proposal.ID, analysis, "original")
	require.Error(t, err)
}
