package sandbox

import "github.com/tetratelabs/wazero/sys"

// wasmExitCode extracts a WASI module's exit code from the error
// wazero returns when the module calls proc_exit, or 0 if err is not
// such an error (signaling a genuine execution failure instead).
func wasmExitCode(err error) int {
	if exitErr, ok := err.(*sys.ExitError); ok {
		return int(exitErr.ExitCode())
	}
	return 0
}
