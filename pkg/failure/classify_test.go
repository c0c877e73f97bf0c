package failure

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinforge/skillforge/pkg/ledger"
)

func TestClassifyPrefersInvariantOverPolicy(t *testing.T) {
	build := &ledger.Build{ID: "b1", Status: ledger.BuildFailed, AttemptNumber: 1}
	verification := &ledger.Verification{Status: ledger.VerificationFailed, InvariantOK: false, PolicyOK: false}

	analysis := Classify(build, "", verification)
	require.Equal(t, KindVerifyInvariant, analysis.Kind)
}

func TestClassifyFallsThroughVerificationChecksInPriorityOrder(t *testing.T) {
	build := &ledger.Build{ID: "b1", Status: ledger.BuildFailed, AttemptNumber: 1}

	policy := &ledger.Verification{Status: ledger.VerificationFailed, InvariantOK: true, PolicyOK: false}
	require.Equal(t, KindVerifyPolicy, Classify(build, "", policy).Kind)

	test := &ledger.Verification{Status: ledger.VerificationFailed, InvariantOK: true, PolicyOK: true, TestsOK: false}
	require.Equal(t, KindVerifyTest, Classify(build, "", test).Kind)

	lint := &ledger.Verification{Status: ledger.VerificationFailed, InvariantOK: true, PolicyOK: true, TestsOK: true, RuffOK: false, MypyOK: true}
	require.Equal(t, KindVerifyLint, Classify(build, "", lint).Kind)
}

func TestClassifyDetectsTimeoutFromSummary(t *testing.T) {
	build := &ledger.Build{ID: "b1", Status: ledger.BuildFailed, Summary: "builder invocation: Timeout after 120s"}

	analysis := Classify(build, "", nil)
	require.Equal(t, KindTimeout, analysis.Kind)
}

func TestClassifyExtractsGateViolationDetails(t *testing.T) {
	build := &ledger.Build{ID: "b1", Status: ledger.BuildFailed, Summary: "diff gate failed: changed files outside allow-list"}
	buildLog := `Violations: [skills/extra.go]
Required missing: [skills/write_note_test.go]`

	analysis := Classify(build, buildLog, nil)
	require.Equal(t, KindGateViolation, analysis.Kind)
	require.Contains(t, analysis.Facts, "Disallowed files: skills/extra.go")
	require.Contains(t, analysis.Facts, "Missing files: skills/write_note_test.go")
}

func TestClassifyExtractsExitCodeForGenericBuildError(t *testing.T) {
	build := &ledger.Build{ID: "b1", Status: ledger.BuildFailed, Summary: "builder invocation: exit status 2"}
	buildLog := "command failed\nExit code: 2\n"

	analysis := Classify(build, buildLog, nil)
	require.Equal(t, KindBuildError, analysis.Kind)
	require.Contains(t, analysis.Facts, "Exit code: 2")
}

func TestClassifyFallsBackToUnknown(t *testing.T) {
	build := &ledger.Build{ID: "b1", Status: ledger.BuildSucceeded}

	analysis := Classify(build, "", nil)
	require.Equal(t, KindUnknown, analysis.Kind)
}
