// Package translator turns a Query into a Validated Command by calling an
// external language model and subjecting its reply to strict output
// validation before handing it to the Validator.
package translator

import (
	"context"
	"errors"
	"strings"

	"github.com/d4ncer/gitalky/internal/allowlist"
	"github.com/d4ncer/gitalky/internal/auditlog"
	"github.com/d4ncer/gitalky/internal/contextbuilder"
	"github.com/d4ncer/gitalky/internal/gitalkyerrors"
	"github.com/d4ncer/gitalky/internal/ratelimit"
	"github.com/d4ncer/gitalky/internal/runid"
	"github.com/d4ncer/gitalky/internal/validator"
)

// maxOutputLength is the longest model reply, measured after trimming,
// that the output validator accepts.
const maxOutputLength = 500

// hedgePhrases are explanatory or conversational markers that disqualify a
// reply as a bare command.
var hedgePhrases = []string{
	"I think", "I would", "You should", "Please", "Here's", "Here is", "Let me",
}

var outputMetacharacters = []string{";", "|", "&", "$", "`", ">", "<"}

// ModelClient is the capability the Translator needs from an LLM backend.
type ModelClient interface {
	Translate(ctx context.Context, query, repoContext string) (string, error)
}

// Translator sequences rate limiting, context building, the model call,
// output validation, and a final Validator pass.
type Translator struct {
	Limiter *ratelimit.Limiter
	Context *contextbuilder.Builder
	Model   ModelClient
	Audit   *auditlog.Logger
	// RepoPath is recorded on audit rejection records.
	RepoPath string
}

// New wires a Translator from its collaborators. Audit may be nil, in which
// case rejections are not logged.
func New(limiter *ratelimit.Limiter, ctxBuilder *contextbuilder.Builder, model ModelClient, audit *auditlog.Logger, repoPath string) *Translator {
	return &Translator{Limiter: limiter, Context: ctxBuilder, Model: model, Audit: audit, RepoPath: repoPath}
}

// Translate runs the full pipeline: rate-limit check, context build, model
// call, output validation, and Validator re-check.
func (t *Translator) Translate(ctx context.Context, query string) (*validator.ValidatedCommand, error) {
	if err := t.Limiter.Check(); err != nil {
		return nil, err
	}

	rc, err := t.Context.Build(query)
	if err != nil {
		return nil, gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "translator.Translate", err)
	}

	raw, err := t.Model.Translate(ctx, query, rc.Base+rc.Escalated)
	if err != nil {
		return nil, err
	}

	output := strings.TrimSpace(raw)
	if reason := validateOutput(output); reason != "" {
		t.logRejection(ctx, query, raw, reason)
		return nil, gitalkyerrors.Wrap(gitalkyerrors.KindTranslation, "translator.Translate",
			&invalidOutputError{reason: reason})
	}

	stripped := strings.TrimPrefix(output, "git ")
	vc, err := validator.Validate(stripped)
	if err != nil {
		t.logRejection(ctx, query, raw, err.Error())
		return nil, err
	}
	return vc, nil
}

// validateOutput applies the output validator from the model-call
// algorithm and returns a short rejection reason, or "" if output passes.
func validateOutput(output string) string {
	if output == "" {
		return "empty model output"
	}
	if len(output) > maxOutputLength {
		return "model output exceeds 500 characters"
	}
	if strings.Contains(output, "\n") {
		return "model output contains a newline"
	}
	for _, ch := range outputMetacharacters {
		if strings.Contains(output, ch) {
			return "model output contains a shell metacharacter"
		}
	}

	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "empty model output"
	}
	first := fields[0]
	if first != "git" && !allowlist.Allowed(first) {
		return "model output does not start with git or an allowed subcommand"
	}

	if strings.HasPrefix(output, `"`) || strings.HasPrefix(output, "'") {
		return "model output begins with a quotation mark"
	}
	for _, phrase := range hedgePhrases {
		if strings.Contains(output, phrase) {
			return "model output contains a hedging phrase: " + phrase
		}
	}

	return ""
}

func (t *Translator) logRejection(ctx context.Context, query, llmOutput, reason string) {
	if t.Audit == nil {
		return
	}
	_ = t.Audit.LogValidationFailure(t.RepoPath, query, llmOutput, reason, runid.FromContext(ctx))
}

// invalidOutputError carries the output validator's rejection reason.
type invalidOutputError struct {
	reason string
}

func (e *invalidOutputError) Error() string { return "invalid model output: " + e.reason }

func (e *invalidOutputError) Is(target error) bool {
	return errors.Is(target, gitalkyerrors.ErrInvalidOutput)
}
