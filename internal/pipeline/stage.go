// Package pipeline executes the check stages configured for a git hook.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cargohook/cargohook/pkg/exitcode"
)

// Stage is a single command in a hook pipeline. Required stages (the default)
// stop the pipeline when they fail and their exit status becomes the hook's
// exit status. Advisory stages may fail freely and run with their output
// suppressed.
type Stage struct {
	Name            string
	Command         string
	Args            []string
	Advisory        bool
	RequiresChannel string
	Paths           []string
	Priority        int
	Timeout         time.Duration
}

// CommandLine returns the human-readable invocation for logs and hints.
func (s Stage) CommandLine() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return fmt.Sprintf("%s %s", s.Command, strings.Join(s.Args, " "))
}

// StageError reports a failed required stage. It carries the tool's exit
// status unchanged so the hook process can exit with the same code, and an
// optional hint naming the fix command a developer can run by hand.
type StageError struct {
	Stage string
	Code  int
	Hint  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed with exit status %d", e.Stage, e.Code)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExitCode implements exitcode.Coded.
func (e *StageError) ExitCode() int { return e.Code }

// Invoker runs a stage command in the project rooted at root. quiet suppresses
// the command's output.
type Invoker interface {
	Invoke(ctx context.Context, stage Stage, root string, quiet bool) error
}

// ExecInvoker runs stages as external processes.
type ExecInvoker struct{}

// Invoke executes the stage command with the working directory set to root.
// Required stages stream to the user's terminal; quiet (advisory) stages have
// stdout and stderr discarded.
func (ExecInvoker) Invoke(ctx context.Context, stage Stage, root string, quiet bool) error {
	// #nosec G204 -- stage commands come from the checked-in hooks manifest,
	// which has the same trust level as a Makefile
	cmd := exec.CommandContext(ctx, stage.Command, stage.Args...)
	cmd.Dir = root
	cmd.Env = os.Environ()
	if quiet {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// exitStatus maps an invocation error to the exit status the hook should
// report. Tool exit codes pass through unchanged; a command that could not be
// started maps to ToolNotFound.
func exitStatus(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.Is(err, exec.ErrNotFound) {
		return exitcode.ToolNotFound
	}
	var coded exitcode.Coded
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return exitcode.GeneralError
}
