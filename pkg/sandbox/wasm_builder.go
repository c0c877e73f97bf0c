package sandbox

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// WasmBuilder runs the builder as a WASI module via wazero, the
// alternate execution path selected by FORGE_BUILDER_WASM. It gives
// the builder a sandboxed filesystem view rooted at the workspace
// directory, with no network or host process access, a stricter
// boundary than the native subprocess path.
type WasmBuilder struct {
	// ModulePath is the path to the compiled .wasm builder binary.
	ModulePath string
}

// NewWasmBuilder returns a WasmBuilder loading its module from modulePath.
func NewWasmBuilder(modulePath string) *WasmBuilder {
	return &WasmBuilder{ModulePath: modulePath}
}

func (b *WasmBuilder) Invoke(ctx context.Context, workspace string, packet Packet, timeout time.Duration) (BuildResult, error) {
	wasmBytes, err := os.ReadFile(b.ModulePath)
	if err != nil {
		return BuildResult{}, &ferr.ExecutionError{SkillName: packet.SkillName, Cause: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runtime := wazero.NewRuntimeWithConfig(runCtx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer runtime.Close(runCtx)

	wasi_snapshot_preview1.MustInstantiate(runCtx, runtime)

	var stdout, stderr bytes.Buffer
	fsConfig := wazero.NewFSConfig().WithDirMount(workspace, "/workspace")
	cfg := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithFSConfig(fsConfig).
		WithEnv("FORGE_SKILL_NAME", packet.SkillName).
		WithEnv("FORGE_WORKSPACE", "/workspace")

	started := time.Now()
	_, runErr := runtime.InstantiateWithConfig(runCtx, wasmBytes, cfg)
	duration := time.Since(started)

	if runCtx.Err() == context.DeadlineExceeded {
		return BuildResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: duration},
			&ferr.Timeout{Operation: "sandbox build (wasm)", Budget: timeout.String()}
	}

	exitCode := 0
	if runErr != nil {
		exitCode = wasmExitCode(runErr)
		if exitCode == 0 {
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
