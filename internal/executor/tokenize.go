package executor

import (
	"strings"

	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
)

// shellMetacharacters mirrors the validator's screen; the executor re-checks
// independently so it never trusts a caller that skipped validation.
var shellMetacharacters = []string{";", "|", "&", "`", "$", ">", "<"}

// splitCompound splits command on the single permitted compound separator,
// " && ", mirroring validator.splitCompound. A bare "&" or an unspaced "&&"
// left within a part is caught below by tokenize's metacharacter screen.
func splitCompound(command string) []string {
	if !strings.Contains(command, " && ") {
		return []string{command}
	}
	raw := strings.Split(command, " && ")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.TrimSpace(p))
	}
	return parts
}

// tokenize splits command on whitespace, respecting matched single or
// double quotes. It does not interpret escape sequences; an unmatched quote
// is a parse error. This is a deliberate restriction: git rarely needs
// escaped quotes, and a richer parser widens the attack surface.
func tokenize(command string) ([]string, error) {
	for _, ch := range shellMetacharacters {
		if strings.Contains(command, ch) {
			return nil, gitalkyerrors.Wrap(gitalkyerrors.KindExecutor, "executor.tokenize", gitalkyerrors.ErrExecShellMetacharacter)
		}
	}

	var tokens []string
	var current strings.Builder
	var quote byte
	inToken := false

	for i := 0; i < len(command); i++ {
		c := command[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteByte(c)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, gitalkyerrors.Wrap(gitalkyerrors.KindExecutor, "executor.tokenize", gitalkyerrors.ErrExecParse)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}
