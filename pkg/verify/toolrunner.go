// Package verify implements the verify orchestrator (spec.md §4.11):
// invariants, the policy scanner, and an externally supplied set of
// quality checks, combined into one pass/fail verdict and a
// verification report artifact.
package verify

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Tool is one externally supplied quality check (lint, type-check,
// tests, ...).
type Tool struct {
	Name    string
	Command []string
	// Dir, if set, overrides the working directory the command runs in.
	Dir string
}

// CheckResult is one tool's outcome.
type CheckResult struct {
	OK     bool
	Detail string
}

// Runner executes Tools and reports pass/fail. Real and stub variants
// exist so verification can be exercised deterministically in tests
// without depending on lint/type-check binaries being installed.
type Runner interface {
	Run(ctx context.Context, tool Tool, cwd string, timeout time.Duration) CheckResult
}

// RealRunner runs tools as native subprocesses. A non-zero exit code,
// a missing binary, or a timeout are all treated as failure.
type RealRunner struct{}

func (RealRunner) Run(ctx context.Context, tool Tool, cwd string, timeout time.Duration) CheckResult {
	if _, err := exec.LookPath(tool.Command[0]); err != nil {
		return CheckResult{OK: false, Detail: "binary not found: " + tool.Command[0]}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir := cwd
	if tool.Dir != "" {
		dir = tool.Dir
	}
	cmd := exec.CommandContext(runCtx, tool.Command[0], tool.Command[1:]...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return CheckResult{OK: false, Detail: "timed out after " + timeout.String()}
	}
	if err != nil {
		return CheckResult{OK: false, Detail: out.String()}
	}
	return CheckResult{OK: true, Detail: out.String()}
}

// StubRunner is a drop-in test double allowing deterministic pass/fail
// injection per tool name.
type StubRunner struct {
	Results map[string]CheckResult
}

func (s StubRunner) Run(ctx context.Context, tool Tool, cwd string, timeout time.Duration) CheckResult {
	if result, ok := s.Results[tool.Name]; ok {
		return result
	}
	return CheckResult{OK: true}
}
