package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/basinforge/skillforge/pkg/artifact"
	"github.com/basinforge/skillforge/pkg/invariant"
	"github.com/basinforge/skillforge/pkg/ledger"
	"github.com/basinforge/skillforge/pkg/policyscan"
)

// Verifier runs the combined invariants + policy scan + quality-tool
// verdict (spec.md §4.11).
type Verifier struct {
	store   ledger.Store
	writer  *artifact.Writer
	scanner *policyscan.Scanner
	runner  Runner
	tools   []Tool
	timeout time.Duration
}

// NewVerifier builds a Verifier. tools is the externally supplied
// quality-check set (lint, type-check, tests); runner decides how they
// are actually executed (RealRunner in production, StubRunner in tests).
func NewVerifier(store ledger.Store, writer *artifact.Writer, scanner *policyscan.Scanner, runner Runner, tools []Tool, timeout time.Duration) *Verifier {
	return &Verifier{store: store, writer: writer, scanner: scanner, runner: runner, tools: tools, timeout: timeout}
}

// Request names what is being verified.
type Request struct {
	ProposalID  string
	SkillFile   string // path to the built skill source, relative to projectRoot
	ProjectRoot string
}

// checkOutcome is one named check's pass/fail and detail, used both for
// invariants/policy (fixed names) and externally supplied tools.
type checkOutcome struct {
	Name   string
	OK     bool
	Detail string
}

// Run executes every check, writes the verification report, records a
// Verification row, and on a clean pass transitions the proposal to
// VERIFIED.
func (v *Verifier) Run(ctx context.Context, req Request) (*ledger.Verification, error) {
	proposal, err := v.store.GetProposal(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}

	var outcomes []checkOutcome

	invResult, err := invariant.CheckInvariants(ctx, req.SkillFile, proposal.EffectClass, proposal.Name, req.ProjectRoot)
	if err != nil {
		outcomes = append(outcomes, checkOutcome{Name: "invariants", OK: false, Detail: err.Error()})
	} else {
		outcomes = append(outcomes, checkOutcome{Name: "invariants", OK: invResult.OK(), Detail: formatInvariantDetail(invResult)})
	}

	scanResult, err := v.scanner.ScanDirectory(req.ProjectRoot)
	if err != nil {
		outcomes = append(outcomes, checkOutcome{Name: "policy", OK: false, Detail: err.Error()})
	} else {
		outcomes = append(outcomes, checkOutcome{Name: "policy", OK: scanResult.OK(), Detail: formatPolicyDetail(scanResult)})
	}

	toolOutcomes := make(map[string]CheckResult, len(v.tools))
	for _, tool := range v.tools {
		result := v.runner.Run(ctx, tool, req.ProjectRoot, v.timeout)
		toolOutcomes[tool.Name] = result
		outcomes = append(outcomes, checkOutcome{Name: tool.Name, OK: result.OK, Detail: result.Detail})
	}

	allOK := true
	for _, o := range outcomes {
		if !o.OK {
			allOK = false
		}
	}
	status := ledger.VerificationFailed
	if allOK {
		status = ledger.VerificationPassed
	}

	report := renderReport(req.ProposalID, proposal.Name, outcomes)
	artifactRec, err := v.writer.WriteBytes(ctx, ledger.ArtifactVerificationReport, req.ProposalID, []byte(report))
	if err != nil {
		return nil, err
	}

	verification := &ledger.Verification{
		ProposalID:  req.ProposalID,
		Status:      status,
		RuffOK:      toolOK(toolOutcomes, "ruff"),
		MypyOK:      toolOK(toolOutcomes, "mypy"),
		TestsOK:     toolOK(toolOutcomes, "tests"),
		PolicyOK:    findOK(outcomes, "policy"),
		InvariantOK: findOK(outcomes, "invariants"),
		ReportPath:  artifactRec.Path,
	}
	if err := v.store.InsertVerification(ctx, verification); err != nil {
		return nil, err
	}

	if allOK {
		if err := v.store.UpdateProposalStatus(ctx, req.ProposalID, ledger.ProposalVerified); err != nil {
			return nil, err
		}
	}

	return verification, nil
}

func toolOK(results map[string]CheckResult, name string) bool {
	result, ok := results[name]
	if !ok {
		return true // tool not configured for this policy bundle: vacuously satisfied
	}
	return result.OK
}

func findOK(outcomes []checkOutcome, name string) bool {
	for _, o := range outcomes {
		if o.Name == name {
			return o.OK
		}
	}
	return false
}

func formatInvariantDetail(r invariant.Result) string {
	if r.OK() {
		return ""
	}
	var parts []string
	for _, v := range r.Violations {
		parts = append(parts, fmt.Sprintf("[%s] %s", v.Check, v.Message))
	}
	return strings.Join(parts, "; ")
}

func formatPolicyDetail(r policyscan.Result) string {
	if r.OK() {
		return ""
	}
	var parts []string
	for _, v := range r.Violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}

func renderReport(proposalID, name string, outcomes []checkOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Verification Report\n\nProposal: %s (%s)\n\n## Results\n", proposalID, name)
	allOK := true
	for _, o := range outcomes {
		verdict := "PASS"
		if !o.OK {
			verdict = "FAIL"
			allOK = false
		}
		fmt.Fprintf(&b, "- %s: %s\n", o.Name, verdict)
	}
	overall := "PASSED"
	if !allOK {
		overall = "FAILED"
	}
	fmt.Fprintf(&b, "\n## Overall: %s\n", overall)

	for _, o := range outcomes {
		if !o.OK && o.Detail != "" {
			fmt.Fprintf(&b, "\n## %s detail\n%s\n", o.Name, o.Detail)
		}
	}
	return b.String()
}
