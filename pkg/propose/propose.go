// Package propose implements the public propose entry point (spec.md
// §6): validates a candidate skill's declared shape, inserts a
// PROPOSED proposal, and writes its SKILL_SPEC artifact.
package propose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/skill"
)

// Request describes a candidate skill to propose.
type Request struct {
	Name            string
	Description     string
	IOSchemaJSON    string
	EffectClass     skill.EffectClass
	RequiredSecrets []string
}

// Proposer creates proposals and their SKILL_SPEC artifacts.
type Proposer struct {
	store  ledger.Store
	writer *artifact.Writer
}

// NewProposer builds a Proposer over the given ledger and artifact writer.
func NewProposer(store ledger.Store, writer *artifact.Writer) *Proposer {
	return &Proposer{store: store, writer: writer}
}

// Run validates the request, inserts a PROPOSED proposal, and records
// its SKILL_SPEC artifact.
func (p *Proposer) Run(ctx context.Context, req Request) (*ledger.Proposal, *ledger.Artifact, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, nil, &ferr.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if !req.EffectClass.Valid() {
		return nil, nil, &ferr.ValidationError{Field: "effect_class", Message: "unrecognized effect class: " + string(req.EffectClass)}
	}
	if !json.Valid([]byte(req.IOSchemaJSON)) {
		return nil, nil, &ferr.ValidationError{Field: "io_schema", Message: "not valid JSON"}
	}

	secrets := req.RequiredSecrets
	if secrets == nil {
		secrets = []string{}
	}

	proposal := &ledger.Proposal{
		Name:            req.Name,
		Description:     req.Description,
		IOSchema:        req.IOSchemaJSON,
		EffectClass:     string(req.EffectClass),
		RequiredSecrets: secrets,
		Status:          ledger.ProposalProposed,
	}
	if err := p.store.InsertProposal(ctx, proposal); err != nil {
		return nil, nil, err
	}

	rec, err := p.writer.WriteBytes(ctx, ledger.ArtifactSkillSpec, proposal.ID, []byte(renderSpec(req, secrets)))
	if err != nil {
		return nil, nil, err
	}

	return proposal, rec, nil
}

func renderSpec(req Request, secrets []string) string {
	secretsJSON, _ := json.Marshal(secrets)
	return fmt.Sprintf(`# Skill Specification: %s

## Description
%s

## Effect Class
%s

## Required Secrets
%s

## I/O Schema
`+"```json\n%s\n```"+`
`, req.Name, req.Description, req.EffectClass, string(secretsJSON), req.IOSchemaJSON)
}
