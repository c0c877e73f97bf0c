package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithNoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"forge"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stdout.String(), "USAGE")
}

func TestRunWithUnknownCommandFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"forge", "bogus"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "unknown command")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"forge", "help"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "propose")
}
