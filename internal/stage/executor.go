package stage

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner executes one stage invocation to completion.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExecRunner starts each invocation as a child process and blocks until it
// exits. No timeout is applied; only ctx cancellation stops the child.
type ExecRunner struct {
	Stdout io.Writer // Defaults to os.Stdout.
	Stderr io.Writer // Defaults to os.Stderr.
}

// Run executes inv with its output streams passed through uncaptured.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdin = nil
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExternalStageError{Stage: inv.Stage, ExitCode: code, Err: err}
}
