package sandbox

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// BuildResult captures one builder invocation's observable outcome.
type BuildResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Builder invokes the external code-generation tool against a sandbox
// workspace.
type Builder interface {
	Invoke(ctx context.Context, workspace string, packet Packet, timeout time.Duration) (BuildResult, error)
}

// NativeBuilder runs the builder as a native subprocess via os/exec,
// the default path (spec.md §4.10 step 5).
type NativeBuilder struct {
	// BinaryName is the builder executable looked up on PATH.
	BinaryName string
}

// NewNativeBuilder returns a NativeBuilder using the given binary name,
// defaulting to "forge-builder".
func NewNativeBuilder(binaryName string) *NativeBuilder {
	if binaryName == "" {
		binaryName = "forge-builder"
	}
	return &NativeBuilder{BinaryName: binaryName}
}

func (b *NativeBuilder) Invoke(ctx context.Context, workspace string, packet Packet, timeout time.Duration) (BuildResult, error) {
	binPath, err := exec.LookPath(b.BinaryName)
	if err != nil {
		return BuildResult{}, &ferr.ExecutionError{SkillName: packet.SkillName, Cause: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	cmd := exec.CommandContext(runCtx, binPath)
	cmd.Dir = workspace
	cmd.Env = append(os.Environ(), "FORGE_SKILL_NAME="+packet.SkillName)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(started)

	if runCtx.Err() == context.DeadlineExceeded {
		return BuildResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: duration},
			&ferr.Timeout{Operation: "sandbox build", Budget: timeout.String()}
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return BuildResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: duration},
				&ferr.ExecutionError{SkillName: packet.SkillName, Cause: runErr}
		}
	}

	return BuildResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}
