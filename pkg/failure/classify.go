// Package failure implements the failure-classification and retry
// advisor (spec.md §4.13): a deterministic classifier over build and
// verification records, a research-note artifact writer, escalation
// triggers gating retry behind human approval, and an LLM-advised
// BUILD_PACKET correction.
package failure

import (
	"regexp"
	"strings"

	"github.com/basinforge/skillforge/pkg/ledger"
)

// Kind names the category of a build or verification failure. The order
// of the constants below is not the order in which Classify tests them.
type Kind string

const (
	KindGateViolation   Kind = "GATE_VIOLATION"
	KindTimeout         Kind = "TIMEOUT"
	KindBuildError      Kind = "BUILD_ERROR"
	KindVerifyLint      Kind = "VERIFY_LINT"
	KindVerifyTest      Kind = "VERIFY_TEST"
	KindVerifyPolicy    Kind = "VERIFY_POLICY"
	KindVerifyInvariant Kind = "VERIFY_INVARIANT"
	KindUnknown         Kind = "UNKNOWN"
)

const logExcerptMax = 2000

// Analysis is the deterministic classifier's output.
type Analysis struct {
	Kind          Kind
	Facts         []string
	LogExcerpt    string
	AttemptNumber int
	BuildID       string
}

func extractExcerpt(text string) string {
	if len(text) <= logExcerptMax {
		return text
	}
	return text[:logExcerptMax] + "\n... (truncated)"
}

var (
	violationsPattern = regexp.MustCompile(`Violations:\s*\[([^\]]*)\]`)
	missingPattern    = regexp.MustCompile(`Required missing:\s*\[([^\]]*)\]`)
	exitCodePattern   = regexp.MustCompile(`Exit code:\s*(\d+)`)
)

// Classify determines why a build or its verification failed. It is
// fully deterministic — no model calls, so it is safe to call from a
// hot path or a test without any external dependency.
//
// Verification-level failures are checked first (more specific than
// build-level ones): invariant, then policy, then tests, then lint.
// Only after that does it fall back to the build's own status.
func Classify(build *ledger.Build, buildLog string, verification *ledger.Verification) Analysis {
	base := func(kind Kind, facts []string) Analysis {
		return Analysis{
			Kind:          kind,
			Facts:         facts,
			LogExcerpt:    extractExcerpt(buildLog),
			AttemptNumber: build.AttemptNumber,
			BuildID:       build.ID,
		}
	}

	if verification != nil && verification.Status == ledger.VerificationFailed {
		if !verification.InvariantOK {
			return base(KindVerifyInvariant, []string{"Invariant check failed"})
		}
		if !verification.PolicyOK {
			return base(KindVerifyPolicy, []string{"Policy scanner found violations"})
		}
		if !verification.TestsOK {
			return base(KindVerifyTest, []string{"tests failed"})
		}
		if !verification.RuffOK || !verification.MypyOK {
			var facts []string
			if !verification.RuffOK {
				facts = append(facts, "ruff check failed")
			}
			if !verification.MypyOK {
				facts = append(facts, "mypy check failed")
			}
			return base(KindVerifyLint, facts)
		}
	}

	if build.Status == ledger.BuildFailed {
		summary := build.Summary
		logHead := buildLog
		if len(logHead) > 500 {
			logHead = logHead[:500]
		}

		if strings.Contains(summary, "Timeout") || strings.Contains(logHead, "TIMEOUT") {
			return base(KindTimeout, []string{"Build timed out: " + summary})
		}

		if strings.Contains(summary, "Diff gate") || strings.Contains(strings.ToLower(summary), "gate failed") {
			var facts []string
			if m := violationsPattern.FindStringSubmatch(buildLog); m != nil {
				facts = append(facts, "Disallowed files: "+m[1])
			}
			if m := missingPattern.FindStringSubmatch(buildLog); m != nil {
				facts = append(facts, "Missing files: "+m[1])
			}
			facts = append(facts, "Gate summary: "+summary)
			return base(KindGateViolation, facts)
		}

		facts := []string{"Build failed: " + summary}
		if m := exitCodePattern.FindStringSubmatch(buildLog); m != nil {
			facts = append(facts, "Exit code: "+m[1])
		}
		return base(KindBuildError, facts)
	}

	return base(KindUnknown, []string{"Could not determine failure cause"})
}
