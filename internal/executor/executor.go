// Package executor parses a Validated Command into argv, sanitizes the
// child process environment, spawns git, and returns a structured
// CommandOutcome. It never invokes a shell.
package executor

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

// DefaultTimeout is used by Execute; callers needing a different bound
// should use ExecuteWithTimeout.
const DefaultTimeout = 30 * time.Second

// maxOutputBytes and maxOutputLines bound captured stdout/stderr; whichever
// limit is hit first truncates the stream.
const (
	maxOutputBytes = 10 * 1024 * 1024
	maxOutputLines = 10_000
)

const truncationMarker = "\n... [output truncated]\n"

// passthroughEnv lists the parent environment variables re-populated into
// the scrubbed child environment. Everything else, including GIT_SSH_COMMAND,
// GIT_EDITOR, GIT_PAGER, and GIT_EXEC_PATH, is dropped.
var passthroughEnv = []string{
	"PATH", "HOME", "USER", "LOGNAME", "LANG", "LC_ALL", "TZ", "TERM", "TMPDIR",
}

// Status is the completion status of a Command Outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusTimeout Status = "timeout"
)

// CommandOutcome is the result of running git to completion or to timeout.
type CommandOutcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Status   Status
}

// Executor runs git commands rooted at a fixed repository directory.
type Executor struct {
	RepoRoot string
	// Timeout bounds each invocation made through Execute. Zero means
	// DefaultTimeout; ExecuteWithTimeout ignores this field entirely.
	Timeout time.Duration
}

// New returns an Executor bound to repoRoot, using DefaultTimeout until
// Timeout is set explicitly.
func New(repoRoot string) *Executor {
	return &Executor{RepoRoot: repoRoot, Timeout: DefaultTimeout}
}

// Execute runs command with e.Timeout (DefaultTimeout if unset).
func (e *Executor) Execute(command string) (*CommandOutcome, error) {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return e.ExecuteWithTimeout(command, timeout)
}

// ExecuteWithTimeout parses command into argv, scrubs the environment, and
// runs git under the given timeout. A command joined by the single
// compound form the Validator permits (" && ") runs as a sequence of git
// invocations sharing one timeout, stopping at the first non-zero exit or
// timeout, so the pair behaves like shell && without ever invoking a shell.
func (e *Executor) ExecuteWithTimeout(command string, timeout time.Duration) (*CommandOutcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout, stderr strings.Builder
	for i, part := range splitCompound(command) {
		argv, err := tokenize(part)
		if err != nil {
			return nil, err
		}
		if len(argv) > 0 && argv[0] == "git" {
			argv = argv[1:]
		}
		if len(argv) == 0 {
			return nil, gitalkyerrors.Wrap(gitalkyerrors.KindExecutor, "executor.Execute", gitalkyerrors.ErrExecParse)
		}

		cmd := exec.CommandContext(ctx, "git", argv...)
		cmd.Dir = e.RepoRoot
		cmd.Env = scrubbedEnv()
		cmd.Stdin = nil

		var partOut, partErr strings.Builder
		cmd.Stdout = &partOut
		cmd.Stderr = &partErr

		runErr := cmd.Run()

		if i > 0 {
			stdout.WriteString("\n")
			stderr.WriteString("\n")
		}
		stdout.WriteString(partOut.String())
		stderr.WriteString(partErr.String())

		if ctx.Err() == context.DeadlineExceeded {
			return nil, gitalkyerrors.Wrap(gitalkyerrors.KindExecutor, "executor.Execute", gitalkyerrors.ErrExecTimeout)
		}

		if runErr != nil {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				return &CommandOutcome{
					ExitCode: exitErr.ExitCode(),
					Stdout:   truncate(stdout.String()),
					Stderr:   truncate(stderr.String()),
					Status:   StatusFailure,
				}, nil
			}
			return nil, gitalkyerrors.Wrap(gitalkyerrors.KindExecutor, "executor.Execute", gitalkyerrors.ErrExecSpawn)
		}
	}

	return &CommandOutcome{
		ExitCode: 0,
		Stdout:   truncate(stdout.String()),
		Stderr:   truncate(stderr.String()),
		Status:   StatusSuccess,
	}, nil
}

// scrubbedEnv builds a minimal child environment from the current process
// environment, keeping only the variables git legitimately needs.
func scrubbedEnv() []string {
	env := make([]string, 0, len(passthroughEnv))
	for _, key := range passthroughEnv {
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// truncate bounds s to the smaller of maxOutputBytes and maxOutputLines,
// appending a visible marker if either limit is hit.
func truncate(s string) string {
	truncated := false

	if len(s) > maxOutputBytes {
		s = s[:maxOutputBytes]
		truncated = true
	}

	lines := strings.SplitAfter(s, "\n")
	if len(lines) > maxOutputLines {
		s = strings.Join(lines[:maxOutputLines], "")
		truncated = true
	}

	if truncated {
		return s + truncationMarker
	}
	return s
}
