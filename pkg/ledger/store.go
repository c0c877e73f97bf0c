package ledger

import "context"

// ProposalFilter narrows List queries. Zero value matches everything.
type ProposalFilter struct {
	Name   string
	Status ProposalStatus
}

// BuildFilter narrows List queries.
type BuildFilter struct {
	ProposalID string
	Status     BuildStatus
}

// Store is the typed, persistent store of proposals, builds,
// verifications, promotions and artifacts (spec.md §4.1).
//
// Insert is append-only; Update is restricted to the documented
// mutable fields of each entity. Status transitions are not enforced
// by the store — enforcement lives in the orchestrators that own each
// transition (pkg/promote, pkg/verify, the sandbox build driver).
// Store errors (I/O, corruption) surface as *ferr.StoreError and are
// fatal to the caller; "not found" lookups are normal and expressed as
// (nil, nil) or a *ferr.NotFound depending on the method, as documented
// per method below.
type Store interface {
	// Close releases underlying resources (e.g. the *sql.DB).
	Close() error

	InsertProposal(ctx context.Context, p *Proposal) error
	GetProposal(ctx context.Context, id string) (*Proposal, error)
	ListProposals(ctx context.Context, f ProposalFilter) ([]*Proposal, error)
	// UpdateProposalStatus mutates only the status field.
	UpdateProposalStatus(ctx context.Context, id string, status ProposalStatus) error

	InsertBuild(ctx context.Context, b *Build) error
	GetBuild(ctx context.Context, id string) (*Build, error)
	ListBuilds(ctx context.Context, f BuildFilter) ([]*Build, error)
	// UpdateBuildResult mutates status, summary and finished_at.
	UpdateBuildResult(ctx context.Context, id string, status BuildStatus, summary string, finishedAt interface{}) error

	InsertVerification(ctx context.Context, v *Verification) error
	// GetLatestVerification returns the newest verification by created_at,
	// or (nil, nil) if the proposal has none.
	GetLatestVerification(ctx context.Context, proposalID string) (*Verification, error)
	ListVerifications(ctx context.Context, proposalID string) ([]*Verification, error)

	InsertPromotion(ctx context.Context, p *Promotion) error
	ListPromotions(ctx context.Context, proposalID string) ([]*Promotion, error)

	InsertArtifact(ctx context.Context, a *Artifact) error
	GetArtifact(ctx context.Context, id string) (*Artifact, error)
	ListArtifacts(ctx context.Context, relatedID string) ([]*Artifact, error)
}
