package validator

import (
	"strings"

	"github.com/d4ncer/gitalky/internal/allowlist"
	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

// DangerKind labels why a ValidatedCommand requires explicit confirmation.
type DangerKind string

const (
	DangerNone          DangerKind = ""
	DangerForcePush     DangerKind = "force_push"
	DangerHardReset     DangerKind = "hard_reset"
	DangerClean         DangerKind = "clean"
	DangerForceCheckout DangerKind = "force_checkout"
	DangerDeleteBranch  DangerKind = "delete_branch"
	DangerRebase        DangerKind = "rebase"
	DangerFilterBranch  DangerKind = "filter_branch"
)

// ValidatedCommand is a Proposed Command that has passed every check, with
// its danger classification attached. Its Command field's first token is
// always a member of allowlist.Subcommands.
type ValidatedCommand struct {
	Command     string
	IsDangerous bool
	DangerKind  DangerKind
}

// shellMetacharacters must never appear in a part once the " && " compound
// separator has been stripped out.
var shellMetacharacters = []string{";", "|", "&", "`", "$", ">", "<"}

// Validate accepts a Proposed Command and either rejects it or returns a
// ValidatedCommand. See package doc for the threat model each check closes.
func Validate(command string) (*ValidatedCommand, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil, invalidFormat()
	}

	parts := splitCompound(trimmed)
	danger := DangerNone
	for _, part := range parts {
		kind, err := validatePart(part)
		if err != nil {
			return nil, err
		}
		if kind != DangerNone && danger == DangerNone {
			danger = kind
		}
	}

	return &ValidatedCommand{
		Command:     stripLeadingGit(trimmed),
		IsDangerous: danger != DangerNone,
		DangerKind:  danger,
	}, nil
}

// splitCompound splits on the single permitted compound form: two (or more)
// git commands joined by " && ". A bare "&" or an unspaced "&&" is left
// untouched here and will be caught by the metacharacter screen below.
func splitCompound(s string) []string {
	if !strings.Contains(s, " && ") {
		return []string{s}
	}
	raw := strings.Split(s, " && ")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.TrimSpace(p))
	}
	return parts
}

// validatePart runs checks 1-5 of §4.2 against a single (non-compound)
// command string and returns its danger tag.
func validatePart(part string) (DangerKind, error) {
	body := stripLeadingGit(part)
	if body == "" {
		return DangerNone, invalidFormat()
	}

	if hasMetacharacter(body) {
		return DangerNone, shellMetacharacter()
	}
	if !quotesBalanced(body) {
		return DangerNone, shellMetacharacter()
	}

	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return DangerNone, invalidFormat()
	}

	if !allowlist.Allowed(tokens[0]) {
		return DangerNone, disallowed()
	}

	if err := checkDangerousFlags(tokens, body); err != nil {
		return DangerNone, err
	}

	return classifyDanger(tokens[0], tokens), nil
}

// stripLeadingGit drops an optional "git " prefix. A bare allowed
// subcommand token is passed through unchanged.
func stripLeadingGit(part string) string {
	trimmed := strings.TrimSpace(part)
	if trimmed == "git" {
		return ""
	}
	if strings.HasPrefix(trimmed, "git ") {
		return strings.TrimSpace(trimmed[len("git "):])
	}
	return trimmed
}

func hasMetacharacter(s string) bool {
	for _, ch := range shellMetacharacters {
		if strings.Contains(s, ch) {
			return true
		}
	}
	return false
}

// quotesBalanced reports whether single and double quotes in s are each
// matched, without tracking nesting between the two quote kinds.
func quotesBalanced(s string) bool {
	var open byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if open == 0 {
			if c == '\'' || c == '"' {
				open = c
			}
			continue
		}
		if c == open {
			open = 0
		}
	}
	return open == 0
}

// checkDangerousFlags rejects options that let an otherwise-allowlisted
// command escape the sandbox: arbitrary exec, config override, upload-pack
// proxy, or a repository-path override.
func checkDangerousFlags(tokens []string, body string) error {
	for _, tok := range tokens {
		if tok == "--exec" || strings.HasPrefix(tok, "--exec=") {
			return dangerousFlag()
		}
		if tok == "-c" {
			return dangerousFlag()
		}
		if tok == "--upload-pack" || strings.HasPrefix(tok, "--upload-pack=") {
			return dangerousFlag()
		}
		if strings.HasPrefix(tok, "-C") {
			return dangerousFlag()
		}
	}
	if strings.Contains(body, "core.sshCommand") {
		return dangerousFlag()
	}
	return nil
}

func classifyDanger(subcommand string, tokens []string) DangerKind {
	switch subcommand {
	case "push":
		if hasExactFlag(tokens, "--force") || hasExactFlag(tokens, "-f") {
			return DangerForcePush
		}
	case "reset":
		if hasExactFlag(tokens, "--hard") {
			return DangerHardReset
		}
	case "clean":
		if hasShortFlagRune(tokens, 'f') && hasShortFlagRune(tokens, 'd') {
			return DangerClean
		}
	case "checkout":
		if hasExactFlag(tokens, "--force") || hasExactFlag(tokens, "-f") {
			return DangerForceCheckout
		}
	case "branch":
		if hasExactFlag(tokens, "-D") || hasExactFlag(tokens, "-d") {
			return DangerDeleteBranch
		}
	case "rebase":
		return DangerRebase
	case "filter-branch":
		return DangerFilterBranch
	}
	return DangerNone
}

func hasExactFlag(tokens []string, flag string) bool {
	for _, t := range tokens {
		if t == flag {
			return true
		}
	}
	return false
}

// hasShortFlagRune reports whether any short-option cluster (a token
// starting with a single "-") contains the byte r, so "-fd" and "-f -d"
// both register as carrying both "f" and "d".
func hasShortFlagRune(tokens []string, r byte) bool {
	for _, t := range tokens {
		if len(t) > 1 && t[0] == '-' && t[1] != '-' {
			if strings.IndexByte(t[1:], r) >= 0 {
				return true
			}
		}
	}
	return false
}

func invalidFormat() error {
	return gitalkyerrors.Wrap(gitalkyerrors.KindValidation, "validator.Validate", gitalkyerrors.ErrInvalidFormat)
}

func disallowed() error {
	return gitalkyerrors.Wrap(gitalkyerrors.KindValidation, "validator.Validate", gitalkyerrors.ErrDisallowedSubcommand)
}

func shellMetacharacter() error {
	return gitalkyerrors.Wrap(gitalkyerrors.KindValidation, "validator.Validate", gitalkyerrors.ErrShellMetacharacter)
}

func dangerousFlag() error {
	return gitalkyerrors.Wrap(gitalkyerrors.KindValidation, "validator.Validate", gitalkyerrors.ErrDangerousFlag)
}
