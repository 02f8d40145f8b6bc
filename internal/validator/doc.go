// Package validator accepts a Proposed Command and either rejects it or
// produces a Validated Command carrying a danger classification.
//
// # Threat Model
//
// Gitalky sits between an untrusted language model and a real git binary.
// The validator is the last deterministic gate before a command reaches
// the executor; it assumes the model's reply is adversarial input, not a
// trusted suggestion.
//
// T1 - Command Injection: a malicious or confused model could return a
// command string laced with shell metacharacters (";", "|", "&", "`",
// "$", ">", "<") to smuggle a second command past a naive exec call.
// Mitigated by the shell-metacharacter screen in hasMetacharacter, applied
// before the string is ever tokenized.
//
// T2 - Disallowed Subcommand: the model could return a git subcommand
// outside the set gitalky is willing to run (e.g. "git daemon", "git
// instaweb") or a non-git binary entirely. Mitigated by the shared
// allowlist in internal/allowlist, checked against the first token only.
//
// T3 - Destructive Git Operations: even an allowlisted subcommand can be
// destructive with the right flags (force push, hard reset, force clean,
// force checkout, force branch delete, rebase, filter-branch). The
// validator never blocks these — only the allowlist, metacharacter and
// dangerous-flag checks are blocking — but it tags them with a DangerKind so the state
// machine can demand an explicit "CONFIRM" before executing.
//
// T4 - Disguised Option Injection: flags that themselves execute arbitrary
// programs or redirect git's transport (--exec, -c, --upload-pack, -C,
// core.sshCommand) are rejected outright regardless of subcommand,
// because they let an otherwise-ordinary command escape the sandboxed
// environment the executor builds.
//
// # Design Principles
//
// Deterministic, not model-scored: every check here is a pure function of
// the command string. No network call, no heuristic confidence score —
// the same input always produces the same verdict.
//
// Reject early, tag late: allowlist and metacharacter/flag checks can
// fail the command outright; danger tagging never does — it only adds
// information for a higher layer to act on.
package validator
