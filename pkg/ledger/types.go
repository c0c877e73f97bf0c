// Package ledger implements the typed, persistent store of proposals,
// builds, verifications, promotions, and artifacts (spec.md §4.1),
// backed by a schema-versioned SQL database.
package ledger

import "time"

// ProposalStatus is the lifecycle state of a Proposal (spec.md §4.13).
type ProposalStatus string

const (
	ProposalProposed ProposalStatus = "PROPOSED"
	ProposalRejected ProposalStatus = "REJECTED"
	ProposalBuilt    ProposalStatus = "BUILT"
	ProposalVerified ProposalStatus = "VERIFIED"
	ProposalTrusted  ProposalStatus = "TRUSTED"
)

// BuildStatus is the lifecycle state of a Build.
type BuildStatus string

const (
	BuildStarted   BuildStatus = "STARTED"
	BuildFailed    BuildStatus = "FAILED"
	BuildSucceeded BuildStatus = "SUCCEEDED"
)

// VerificationStatus is the outcome of a Verification pass.
type VerificationStatus string

const (
	VerificationPassed VerificationStatus = "PASSED"
	VerificationFailed VerificationStatus = "FAILED"
)

// ArtifactKind classifies a persisted Artifact.
type ArtifactKind string

const (
	ArtifactSkillSpec         ArtifactKind = "SKILL_SPEC"
	ArtifactPatchSummary      ArtifactKind = "PATCH_SUMMARY"
	ArtifactVerificationReport ArtifactKind = "VERIFICATION_REPORT"
	ArtifactNote              ArtifactKind = "NOTE"
	ArtifactBuildPacket       ArtifactKind = "BUILD_PACKET"
	ArtifactBuildLog          ArtifactKind = "BUILD_LOG"
	ArtifactResearchNote      ArtifactKind = "RESEARCH_NOTE"
)

// Proposal is a proposed unit of code awaiting the build/verify/promote pipeline.
type Proposal struct {
	ID               string
	Name             string
	Description      string
	IOSchema         string // JSON text
	EffectClass      string
	RequiredSecrets  []string
	Status           ProposalStatus
	CreatedAt        time.Time
}

// Build records one attempt to materialize a Proposal's skill source.
type Build struct {
	ID             string
	ProposalID     string
	BranchName     string
	StartedAt      time.Time
	FinishedAt     *time.Time
	Status         BuildStatus
	Summary        string
	AttemptNumber  int
	ParentBuildID  *string
}

// Verification records one gate pass over a proposal's built source.
type Verification struct {
	ID         string
	ProposalID string
	Status     VerificationStatus
	RuffOK     bool
	MypyOK     bool
	TestsOK    bool
	PolicyOK   bool
	InvariantOK bool
	ReportPath string
	CreatedAt  time.Time
}

// Promotion records a Verified -> Trusted transition.
type Promotion struct {
	ID         string
	ProposalID string
	FromStatus string
	ToStatus   string
	ApprovedBy string
	CreatedAt  time.Time
}

// Artifact records a content-hashed file emitted by the forge.
type Artifact struct {
	ID        string
	Kind      ArtifactKind
	Path      string
	SHA256    string
	RelatedID string
	CreatedAt time.Time
}
