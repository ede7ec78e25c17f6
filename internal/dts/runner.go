package dts

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

var lookPath = exec.LookPath

// Runner executes an external tool in dir and returns its combined output
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // tool path comes from FindTool
	cmd.Dir = dir
	cmd.Env = os.Environ()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}
