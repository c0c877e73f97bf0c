// Package invariant implements the three structural governance checks a
// built skill must pass before verification can proceed (spec.md §4.4),
// grounded on forge/invariants.py: structural conformance, diff scope
// containment, and an extended-safety sweep for dynamic-import
// primitives that the policy scan's forbidden-import rule would miss
// because they are not import statements.
package invariant

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Violation is one invariant failure.
type Violation struct {
	Check   string // "structural", "scope", or "safety"
	Message string
	Line    int
}

// Result is the combined outcome of all three checks.
type Result struct {
	StructuralOK bool
	ScopeOK      bool
	SafetyOK     bool
	Violations   []Violation
}

// OK reports whether every sub-check passed.
func (r Result) OK() bool {
	return r.StructuralOK && r.ScopeOK && r.SafetyOK
}

// ProtectedPaths are repository paths a skill build must never modify:
// orchestrator code, ledger code, policy code, and project config
// (spec.md §4.4).
var ProtectedPaths = []string{
	"pkg/ledger/",
	"pkg/policyscan/",
	"pkg/invariant/",
	"pkg/sandbox/",
	"pkg/verify/",
	"pkg/promote/",
	"pkg/propose/",
	"pkg/consumer/",
	"pkg/chain/",
	"pkg/registry/",
	"pkg/artifact/",
	"cmd/forge/",
	"go.mod",
}

// CheckInvariants runs all three sub-checks and returns the combined
// result. expectedEffectClass and proposalName come from the proposal
// record being built; projectRoot is the repository root used for the
// git-diff scope check.
func CheckInvariants(ctx context.Context, skillFile string, expectedEffectClass, proposalName, projectRoot string) (Result, error) {
	structural, err := checkStructural(skillFile, expectedEffectClass)
	if err != nil {
		return Result{}, err
	}
	scope, err := checkScope(ctx, proposalName, projectRoot)
	if err != nil {
		return Result{}, err
	}
	safety, err := checkExtendedSafety(skillFile)
	if err != nil {
		return Result{}, err
	}

	var all []Violation
	all = append(all, structural...)
	all = append(all, scope...)
	all = append(all, safety...)

	return Result{
		StructuralOK: len(structural) == 0,
		ScopeOK:      len(scope) == 0,
		SafetyOK:     len(safety) == 0,
		Violations:   all,
	}, nil
}

func checkScope(ctx context.Context, proposalName, projectRoot string) ([]Violation, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", "diff", "--name-only", "HEAD")
	cmd.Dir = projectRoot
	out, err := cmd.Output()
	if err != nil {
		// Not a git repo, no prior commits, or git unavailable: scope
		// containment cannot be evaluated, so it is skipped rather than
		// failed — mirrors the reference scanner's fail-open behavior
		// for this specific precondition.
		return nil, nil
	}

	changed := strings.Fields(string(out))
	if len(changed) == 0 {
		return nil, nil
	}

	expectedPrefix := "skills/" + proposalName
	testPrefix := "skills/" + proposalName + "_test"

	var violations []Violation
	for _, path := range changed {
		if strings.HasPrefix(path, expectedPrefix) || strings.HasPrefix(path, testPrefix) {
			continue
		}
		for _, protected := range ProtectedPaths {
			if strings.HasPrefix(path, protected) {
				violations = append(violations, Violation{
					Check:   "scope",
					Message: "protected path modified: " + path,
				})
				break
			}
		}
	}
	return violations, nil
}
