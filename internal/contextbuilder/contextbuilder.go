// Package contextbuilder classifies a Query and assembles a bounded
// RepoContext from a Repository Snapshot for the Translator to hand to the
// model.
package contextbuilder

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/d4ncer/gitalky/internal/snapshot"
)

// softBudgetTokens is the ceiling before truncation kicks in.
const softBudgetTokens = 5000

// baseBudgetTokens is the target size of the base summary alone.
const baseBudgetTokens = 500

// truncationSentinel marks a section that was shortened to fit budget.
const truncationSentinel = "[...truncated...]"

// QueryClass buckets a Query by the kind of repository state it most
// likely needs.
type QueryClass string

const (
	ClassCommit  QueryClass = "commit"
	ClassBranch  QueryClass = "branch"
	ClassDiff    QueryClass = "diff"
	ClassHistory QueryClass = "history"
	ClassStash   QueryClass = "stash"
	ClassGeneral QueryClass = "general"
)

// classPriority is the tie-break order when a query matches more than one
// class's vocabulary: Stash, Commit, Diff, History, Branch, General.
var classPriority = []QueryClass{ClassStash, ClassCommit, ClassDiff, ClassHistory, ClassBranch, ClassGeneral}

// vocabulary maps each class to the case-insensitive exact words that
// suggest it. General has no vocabulary; it is the default.
var vocabulary = map[QueryClass][]string{
	ClassCommit:  {"commit", "commits", "commit.", "amend", "message"},
	ClassBranch:  {"branch", "branches", "checkout", "switch"},
	ClassDiff:    {"diff", "changes", "change", "modified"},
	ClassHistory: {"history", "log", "logs", "commits", "past"},
	ClassStash:   {"stash", "stashes", "stashed"},
}

// Classify derives a QueryClass purely from keyword presence in query,
// breaking ties with classPriority. Unknown queries classify as General.
func Classify(query string) QueryClass {
	lower := strings.ToLower(query)
	words := splitWords(lower)
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	matched := make(map[QueryClass]struct{})
	for class, vocab := range vocabulary {
		for _, term := range vocab {
			if _, ok := wordSet[term]; ok {
				matched[class] = struct{}{}
				break
			}
		}
	}

	for _, class := range classPriority {
		if _, ok := matched[class]; ok {
			return class
		}
	}
	return ClassGeneral
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// RepoContext is the bounded description handed to the model alongside a
// Query: a base summary, an optional class-specific escalated block, and an
// estimated token count.
type RepoContext struct {
	Base       string
	Escalated  string
	TokenCount int
	Truncated  bool
}

// Builder produces RepoContext values for a fixed repository root.
type Builder struct {
	RepoRoot string
}

// New returns a Builder rooted at repoRoot.
func New(repoRoot string) *Builder {
	return &Builder{RepoRoot: repoRoot}
}

// Build classifies query, assembles the base and escalated sections from a
// fresh Snapshot, and truncates to the soft token budget if needed.
func (b *Builder) Build(query string) (*RepoContext, error) {
	snap, err := snapshot.Build(b.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("build snapshot for context: %w", err)
	}

	class := Classify(query)
	base := b.buildBase(snap)
	escalated := b.buildEscalated(class)

	rc := &RepoContext{Base: base, Escalated: escalated}
	rc.TokenCount = estimateTokens(rc.Base + rc.Escalated)

	if rc.TokenCount > softBudgetTokens {
		truncate(rc)
	}
	return rc, nil
}

// buildBase composes the ~500-token summary: branch, counts, last commits,
// and the three file-path lists capped at 50 entries each.
func (b *Builder) buildBase(snap *snapshot.Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "branch: %s", snap.Branch)
	if snap.Detached {
		if snap.ShortCommit != "" {
			fmt.Fprintf(&sb, " (detached HEAD at %s)", snap.ShortCommit)
		} else {
			sb.WriteString(" (detached HEAD)")
		}
	}
	sb.WriteString("\n")

	if snap.Upstream != "" {
		fmt.Fprintf(&sb, "upstream: %s (ahead %d, behind %d)\n", snap.Upstream, snap.Ahead, snap.Behind)
	}
	if snap.InProgress != snapshot.OperationNone {
		fmt.Fprintf(&sb, "in-progress operation: %s\n", snap.InProgress)
	}

	sb.WriteString("recent commits:\n")
	for _, c := range snap.RecentCommits {
		fmt.Fprintf(&sb, "  %s %s\n", c.ShortID, c.Subject)
	}

	writeFileList(&sb, "staged", snap.Staged)
	writeFileList(&sb, "unstaged", snap.UnstagedModified)
	writeFileList(&sb, "untracked", snap.Untracked)

	if snap.StashCount > 0 {
		fmt.Fprintf(&sb, "stash count: %d\n", snap.StashCount)
	}

	return sb.String()
}

func writeFileList(sb *strings.Builder, label string, list snapshot.FileList) {
	if len(list.Paths) == 0 && list.Overflow == 0 {
		return
	}
	fmt.Fprintf(sb, "%s files:\n", label)
	for _, p := range list.Paths {
		fmt.Fprintf(sb, "  %s\n", p)
	}
	if list.Overflow > 0 {
		fmt.Fprintf(sb, "  ... and %d more\n", list.Overflow)
	}
}

// buildEscalated returns the class-specific additional content, or the
// empty string for General.
func (b *Builder) buildEscalated(class QueryClass) string {
	switch class {
	case ClassCommit:
		stat, _ := b.runGit("diff", "--stat")
		staged, _ := b.runGit("diff", "--staged")
		return "diff --stat:\n" + stat + "\nstaged diff (first 20 lines):\n" + firstNLines(staged, 20)
	case ClassBranch:
		out, _ := b.runGit("branch", "-vv", "--all")
		return "branches:\n" + out
	case ClassDiff:
		out, _ := b.runGit("diff")
		return "diff (first 100 lines):\n" + firstNLines(out, 100)
	case ClassHistory:
		out, _ := b.runGit("log", "-50", "--format=%h %an %ad %s", "--date=short")
		return "history (last 50 commits):\n" + out
	case ClassStash:
		list, _ := b.runGit("stash", "list")
		var summary string
		if strings.TrimSpace(list) != "" {
			summary, _ = b.runGit("stash", "show", "-p", "stash@{0}")
		}
		return "stash list:\n" + list + "\nfirst stash:\n" + firstNLines(summary, 40)
	default:
		return ""
	}
}

func (b *Builder) runGit(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = b.RepoRoot
	out, err := cmd.Output()
	return string(out), err
}

func firstNLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n" + truncationSentinel
}

// estimateTokens approximates token count as ceil(chars / 4).
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// truncate shortens rc to fit the soft budget. It first replaces the whole
// escalated block (the class-specific history, stash, diff or branch detail)
// with truncationSentinel; the parts of that block are not dropped one at a
// time. If the base summary alone is still over budget, it is cut to
// baseBudgetTokens*4 characters and marked with the sentinel, which removes
// its tail (stash count, then file lists) first. The base summary is never
// dropped entirely.
func truncate(rc *RepoContext) {
	rc.Truncated = true

	if estimateTokens(rc.Base+rc.Escalated) <= softBudgetTokens {
		return
	}
	rc.Escalated = truncationSentinel
	if estimateTokens(rc.Base+rc.Escalated) <= softBudgetTokens {
		return
	}

	maxBaseChars := baseBudgetTokens * 4
	if len(rc.Base) > maxBaseChars {
		rc.Base = rc.Base[:maxBaseChars] + "\n" + truncationSentinel
	}
}
