// Package promote implements the promote + registry update orchestrator
// (spec.md §4.12): verified-status preconditions, skill file hashing,
// registry entry replacement, and the VERIFIED -> TRUSTED transition.
package promote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/registry"
	"github.com/basinforge/skillforge/pkg/sandbox"
)

// Promoter elevates a VERIFIED proposal with a PASSED verification to
// TRUSTED, writing the corresponding registry entry.
type Promoter struct {
	store ledger.Store
	reg   *registry.Store
}

// NewPromoter builds a Promoter over the given ledger and registry stores.
func NewPromoter(store ledger.Store, reg *registry.Store) *Promoter {
	return &Promoter{store: store, reg: reg}
}

// Request names what is being promoted.
type Request struct {
	ProposalID  string
	ProjectRoot string
	ApprovedBy  string
	Version     string // defaults to "0.1.0" if empty
}

// Run enforces the preconditions, computes the current skill hash,
// replaces any prior registry entry of the same name, transitions the
// proposal to TRUSTED, and records a Promotion.
func (p *Promoter) Run(ctx context.Context, req Request) (*ledger.Promotion, error) {
	proposal, err := p.store.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != ledger.ProposalVerified {
		return nil, &ferr.Precondition{Operation: "promote", Reason: "proposal status is " + string(proposal.Status) + ", expected VERIFIED"}
	}

	verification, err := p.store.GetLatestVerification(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}
	if verification == nil || verification.Status != ledger.VerificationPassed {
		return nil, &ferr.Precondition{Operation: "promote", Reason: "no passing verification for proposal"}
	}

	absSkillFile := filepath.Join(req.ProjectRoot, sandbox.SkillFilePath(proposal.Name))
	content, err := os.ReadFile(absSkillFile)
	if err != nil {
		return nil, &ferr.StoreError{Op: "read skill file for promotion", Cause: err}
	}
	sum := sha256.Sum256(content)
	hash := "sha256:" + hex.EncodeToString(sum[:])

	version := req.Version
	if version == "" {
		version = "0.1.0"
	}

	entry := registry.Entry{
		Name:            proposal.Name,
		ModulePath:      moduleReference(proposal.Name),
		SourcePath:      absSkillFile,
		Hash:            hash,
		EffectClass:     proposal.EffectClass,
		RequiredSecrets: append([]string(nil), proposal.RequiredSecrets...),
		Version:         version,
		PromotedAt:      time.Now(),
	}

	if err := checkNotDowngrade(ctx, p.reg, entry); err != nil {
		return nil, err
	}

	if err := p.reg.Put(ctx, entry); err != nil {
		return nil, err
	}

	if err := p.store.UpdateProposalStatus(ctx, req.ProposalID, ledger.ProposalTrusted); err != nil {
		return nil, err
	}

	approvedBy := req.ApprovedBy
	if approvedBy == "" {
		approvedBy = "unspecified"
	}
	promotion := &ledger.Promotion{
		ProposalID: req.ProposalID,
		FromStatus: string(ledger.ProposalVerified),
		ToStatus:   string(ledger.ProposalTrusted),
		ApprovedBy: approvedBy,
	}
	if err := p.store.InsertPromotion(ctx, promotion); err != nil {
		return nil, err
	}

	return promotion, nil
}

// checkNotDowngrade refuses to promote entry over an existing registry
// entry of the same name with a strictly newer semantic version,
// preventing a stale or reverted build from demoting a trusted skill.
func checkNotDowngrade(ctx context.Context, reg *registry.Store, entry registry.Entry) error {
	existing, err := reg.Get(ctx, entry.Name)
	var notFound *ferr.NotFound
	if errors.As(err, &notFound) {
		return nil
	}
	if err != nil {
		return err
	}

	existingVer, err := existing.SemVer()
	if err != nil {
		return &ferr.StoreError{Op: "parse existing registry entry version", Cause: err}
	}
	newVer, err := entry.SemVer()
	if err != nil {
		return &ferr.StoreError{Op: "parse promoted entry version", Cause: err}
	}

	if newVer.LessThan(existingVer) {
		return &ferr.Precondition{
			Operation: "promote",
			Reason:    fmt.Sprintf("refusing to demote %s from %s to %s", entry.Name, existing.Version, entry.Version),
		}
	}
	return nil
}

// moduleReference derives the skills package's class reference from a
// skill name, following the convention "<UpperCamel(name)>Skill".
func moduleReference(name string) string {
	return "skills." + upperCamel(name) + "Skill"
}

func upperCamel(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		fmt.Fprintf(&b, "%s%s", strings.ToUpper(part[:1]), part[1:])
	}
	return b.String()
}
