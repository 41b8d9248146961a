package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Runner abstracts subprocess invocation so backends can be tested
// without a package manager on the machine. A nil env inherits the
// process environment; a non-nil env is the complete environment for
// that one call, so per-call overrides never leak into the next.
type Runner interface {
	Run(ctx context.Context, env []string, args ...string) error
	Capture(ctx context.Context, env []string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec, streaming output through.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

func (ExecRunner) Capture(ctx context.Context, env []string, args ...string) ([]byte, error) {
	var buf bytes.Buffer

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = env
	cmd.Stdout = &buf
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	return buf.Bytes(), err
}

// exitCode maps a Runner error to the command's exit status: 0 for
// nil, -1 when the command never ran (or the error carries no status).
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee interface{ ExitCode() int }
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}

	return -1
}
