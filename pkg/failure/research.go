package failure

import (
	"context"
	"fmt"
	"strings"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/ledger"
)

// Researcher analyzes failed builds and writes research-note artifacts.
type Researcher struct {
	store  ledger.Store
	blobs  artifact.Store
	writer *artifact.Writer
}

// NewResearcher builds a Researcher over the given ledger and blob stores.
func NewResearcher(store ledger.Store, blobs artifact.Store, writer *artifact.Writer) *Researcher {
	return &Researcher{store: store, blobs: blobs, writer: writer}
}

// Research validates that buildID is either itself FAILED or has a
// FAILED verification, classifies the failure, and records a
// RESEARCH_NOTE artifact keyed to the proposal.
func (r *Researcher) Research(ctx context.Context, buildID, userHint string) (Analysis, *ledger.Artifact, error) {
	build, err := r.store.GetBuild(ctx, buildID)
	if err != nil {
		return Analysis{}, nil, err
	}

	verification, err := r.store.GetLatestVerification(ctx, build.ProposalID)
	if err != nil {
		return Analysis{}, nil, err
	}
	if build.Status != ledger.BuildFailed && (verification == nil || verification.Status != ledger.VerificationFailed) {
		return Analysis{}, nil, &ferr.Precondition{
			Operation: "research",
			Reason:    fmt.Sprintf("build %s is not failed (status=%s) and has no failed verification", buildID, build.Status),
		}
	}

	buildLog := r.findBuildLog(ctx, build)
	analysis := Classify(build, buildLog, verification)

	content := renderResearchNote(buildID, analysis, userHint)
	rec, err := r.writer.WriteBytes(ctx, ledger.ArtifactResearchNote, build.ProposalID, []byte(content))
	if err != nil {
		return Analysis{}, nil, err
	}
	return analysis, rec, nil
}

// findBuildLog locates the most recent BUILD_LOG artifact recorded
// against buildID and returns its content, or "" if none was found.
func (r *Researcher) findBuildLog(ctx context.Context, build *ledger.Build) string {
	artifacts, err := r.store.ListArtifacts(ctx, build.ID)
	if err != nil {
		return ""
	}
	for i := len(artifacts) - 1; i >= 0; i-- {
		art := artifacts[i]
		if art.Kind != ledger.ArtifactBuildLog {
			continue
		}
		content, err := r.blobs.Get(ctx, art.SHA256)
		if err != nil {
			continue
		}
		return string(content)
	}
	return ""
}

func renderResearchNote(buildID string, analysis Analysis, userHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research Note: Build %s\n\n", buildID)
	fmt.Fprintf(&b, "## Failure Classification: %s\n\n", analysis.Kind)
	fmt.Fprintf(&b, "**Attempt:** %d\n", analysis.AttemptNumber)
	fmt.Fprintf(&b, "**Build ID:** %s\n\n", analysis.BuildID)
	b.WriteString("## Facts\n")
	for _, fact := range analysis.Facts {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	if userHint != "" {
		fmt.Fprintf(&b, "\n## User Hint\n%s\n", userHint)
	}
	if analysis.LogExcerpt != "" {
		b.WriteString("\n## Log Excerpt\n")
		fmt.Fprintf(&b, "```\n%s\n```\n", analysis.LogExcerpt)
	}
	return b.String()
}
