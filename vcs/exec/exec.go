package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Ex waits for a killed
// process to release its output pipes.
const waitDelay = 2 * time.Second

// Ex executes the named command in the given directory and
// returns combined stdout+stderr output. Pass empty dir to
// use the current working directory. Cancelling ctx kills
// the process.
func Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	return ExEnv(ctx, dir, nil, name, arg...)
}

// ExEnv is Ex with extra environment variables appended
// to the current process environment.
func ExEnv(
	ctx context.Context,
	dir string,
	env []string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	slog.Debug(
		"executing",
		"cmd", name,
		"args", strings.Join(arg, " "),
		"dir", dir,
	)

	//nolint:gosec // commands are built by the application
	cmd := exec.CommandContext(ctx, name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	cmd.WaitDelay = waitDelay

	by, err := cmd.CombinedOutput()

	slog.Debug("output", "result", string(by))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}

		return string(by), &Error{
			Name:   name,
			Args:   arg,
			Output: strings.TrimSpace(string(by)),
			Err: fmt.Errorf(
				"%s: %s %s: %w",
				errCtx, name, strings.Join(arg, " "), err,
			),
		}
	}

	return string(by), nil
}

// Error describes a failed command. Output holds the
// trimmed combined output so callers can classify git
// failures.
type Error struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Output == "" {
		return e.Err.Error()
	}

	return e.Err.Error() + ": " + e.Output
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// OutputOf returns the command output carried by err,
// or empty string when err did not come from Ex.
func OutputOf(err error) string {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Output
	}

	return ""
}
