// Package gitalkyerrors defines the unified error envelope used at module
// boundaries, plus the sentinel kinds each component returns internally.
//
// Each module (git, validator, executor, translator, audit, rate limiter)
// has its own narrow sentinel errors. The repository, validator, executor,
// llmclient and translator packages wrap theirs into an AppError with Wrap
// at their own boundary, so the Kind names the module and errors.Is still
// matches the sentinel. The rate limiter returns *RateLimited unwrapped,
// and the audit logger returns plain fmt-wrapped errors. The state machine
// passes errors on as it receives them; it does not wrap them itself.
package gitalkyerrors

import (
	"errors"
	"fmt"
)

// Kind identifies which module and failure category an AppError wraps.
type Kind string

const (
	KindGit         Kind = "git"
	KindValidation  Kind = "validation"
	KindExecutor    Kind = "executor"
	KindTranslation Kind = "translation"
	KindAudit       Kind = "audit"
	KindRateLimited Kind = "rate_limited"
	KindIO          Kind = "io"
)

// AppError is the unified envelope returned to the state machine and, from
// there, to the user. Op names the operation that failed (e.g.
// "executor.Execute"); Err is the underlying module error and is always
// preserved for errors.Is/errors.As matching.
type AppError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap builds an AppError from a module error. It never double-wraps: if
// err is already an *AppError, it is returned unchanged.
func Wrap(kind Kind, op string, err error) *AppError {
	if err == nil {
		return nil
	}
	var existing *AppError
	if errors.As(err, &existing) {
		return existing
	}
	return &AppError{Kind: kind, Op: op, Err: err}
}

// Validation error sentinels (internal/validator).
var (
	ErrInvalidFormat        = errors.New("invalid command format")
	ErrDisallowedSubcommand = errors.New("subcommand is not on the allowlist")
	ErrShellMetacharacter   = errors.New("command contains a shell metacharacter")
	ErrDangerousFlag        = errors.New("command contains a disallowed flag")
)

// Executor error sentinels (internal/executor).
var (
	ErrExecShellMetacharacter = errors.New("command contains a shell metacharacter")
	ErrExecParse              = errors.New("unbalanced quoting in command")
	ErrExecSpawn              = errors.New("failed to start git")
	ErrExecTimeout            = errors.New("git command timed out")
)

// Translation error sentinels (internal/translator).
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrLLMNetwork    = errors.New("model request failed")
	ErrLLMTimeout    = errors.New("model request timed out")
	ErrLLMAPI        = errors.New("model API returned an error")
	ErrInvalidOutput = errors.New("model output failed validation")
)

// Git/repository error sentinels (internal/repository, internal/snapshot).
var (
	ErrNotARepository = errors.New("not a git repository")
	ErrGitTooOld       = errors.New("git version is older than the minimum supported version")
	ErrCommandFailed   = errors.New("git command exited non-zero")
)

// Audit error sentinels (internal/auditlog).
var (
	ErrAuditIO       = errors.New("audit log write failed")
	ErrAuditRotation = errors.New("audit log rotation failed")
)

// RateLimited carries the wait duration a caller must observe before the
// next slot opens. It satisfies error so it can be returned directly from
// RateLimiter.Check and matched with errors.As.
type RateLimited struct {
	WaitSeconds float64
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry in %.1fs", e.WaitSeconds)
}
