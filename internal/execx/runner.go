// Package execx is the only place envkit touches the operating system to run
// external commands. Everything above it consumes the Runner interface.
package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Options controls a single command execution.
type Options struct {
	// PinnedMajor pins the command to a runtime major version by wrapping it
	// in the runner's exec template. Zero means unpinned.
	PinnedMajor int
	// Timeout bounds the run; zero means no additional bound beyond ctx.
	Timeout time.Duration
	// Shell runs the command line through "sh -c" instead of splitting it
	// into argv fields.
	Shell bool
	Dir   string
	Env   []string
	// Stdout/Stderr receive a streamed copy of output while it is also
	// captured for the result.
	Stdout io.Writer
	Stderr io.Writer
}

// Result carries the outcome of a command that actually ran.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes a command line. A non-zero exit code is reported in the
// Result with a nil error; the error return is reserved for spawn failures,
// timeouts and cancellation.
type Runner interface {
	Run(ctx context.Context, command string, opts Options) (Result, error)
}

// CmdRunner is the production Runner backed by os/exec.
type CmdRunner struct {
	// ExecTemplate wraps a command to pin it to a runtime major version.
	// Placeholders: {version}, {command}.
	ExecTemplate string
}

var _ Runner = CmdRunner{}

// Run executes the command line, substituting the exec template when a
// pinned major is requested.
func (r CmdRunner) Run(ctx context.Context, command string, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	line := command
	if opts.PinnedMajor > 0 {
		line = applyExecTemplate(r.ExecTemplate, opts.PinnedMajor, command)
	}

	var cmd *exec.Cmd
	if opts.Shell {
		cmd = exec.CommandContext(ctx, "sh", "-c", line)
	} else {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return Result{}, &SpawnError{Command: command, Err: errors.New("empty command")}
		}
		cmd = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriter := io.Writer(&stdoutBuf)
	if opts.Stdout != nil {
		stdoutWriter = io.MultiWriter(&stdoutBuf, opts.Stdout)
	}
	stderrWriter := io.Writer(&stderrBuf)
	if opts.Stderr != nil {
		stderrWriter = io.MultiWriter(&stderrBuf, opts.Stderr)
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	err := cmd.Run()
	result := Result{Stdout: stdoutBuf.Bytes(), Stderr: stderrBuf.Bytes()}

	// CommandContext kills the process when the context expires; the exec
	// error in that case is a signal-death ExitError, so check the context
	// before interpreting the exit status.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, ErrTimeout
		}
		return result, ctxErr
	}

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, &SpawnError{Command: line, Err: err}
}

// applyExecTemplate substitutes {version} and {command} in the pinning
// template. An empty template falls back to running the command unpinned.
func applyExecTemplate(template string, major int, command string) string {
	if template == "" {
		return command
	}
	line := strings.ReplaceAll(template, "{version}", strconv.Itoa(major))
	line = strings.ReplaceAll(line, "{command}", command)
	return line
}
