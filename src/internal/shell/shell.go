package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result is the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs a shell command line and captures its output.
type Runner func(ctx context.Context, command string) (Result, error)

// Execute runs command through sh -c. Output is returned even when err is
// non-nil, so callers may still inspect whatever the command printed before
// failing.
func Execute(ctx context.Context, command string) (Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	return res, err
}
