// Command gitalky is an interactive terminal tool that turns natural
// language requests into single git commands, previews them, and executes
// them only after validation (and confirmation, for dangerous operations).
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/d4ncer/gitalky/internal/auditlog"
	"github.com/d4ncer/gitalky/internal/config"
	"github.com/d4ncer/gitalky/internal/contextbuilder"
	"github.com/d4ncer/gitalky/internal/executor"
	"github.com/d4ncer/gitalky/internal/llmclient"
	"github.com/d4ncer/gitalky/internal/logging"
	"github.com/d4ncer/gitalky/internal/ratelimit"
	"github.com/d4ncer/gitalky/internal/repository"
	"github.com/d4ncer/gitalky/internal/statemachine"
	"github.com/d4ncer/gitalky/internal/translator"
	"github.com/d4ncer/gitalky/internal/ui"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "gitalky",
	Short: "Natural-language git, one safe command at a time",
	Long: `gitalky translates a plain-English request into a single git command,
shows it to you before anything runs, and requires explicit confirmation for
anything destructive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// startupError distinguishes the non-zero exit codes the CLI surface
// promises for each class of startup failure.
type startupError struct {
	code int
	err  error
}

func (e *startupError) Error() string { return e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	var se *startupError
	if ok := asStartupError(err, &se); ok {
		return se.code
	}
	return 1
}

func asStartupError(err error, target **startupError) bool {
	se, ok := err.(*startupError)
	if ok {
		*target = se
	}
	return ok
}

func run(cmd *cobra.Command, args []string) error {
	logging.SetDebug(debug)

	cwd, err := os.Getwd()
	if err != nil {
		return &startupError{code: 1, err: fmt.Errorf("determine working directory: %w", err)}
	}

	repo, err := repository.Discover(cwd)
	if err != nil {
		return &startupError{code: 2, err: err}
	}

	cfg, err := config.Load()
	if err != nil {
		return &startupError{code: 3, err: fmt.Errorf("load config: %w", err)}
	}

	var audit *auditlog.Logger
	if cfg.LogExecutions {
		audit, err = auditlog.Open(config.AuditLogPath())
		if err != nil {
			return &startupError{code: 4, err: fmt.Errorf("open audit log: %w", err)}
		}
		defer func() {
			_ = audit.Close()
		}()
	}

	model := llmclient.New(cfg.Model, cfg.APIKey)
	limiter := ratelimit.New(ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	ctxBuilder := contextbuilder.New(repo.Root)
	tr := translator.New(limiter, ctxBuilder, model, audit, repo.Root)
	exec := executor.New(repo.Root)
	exec.Timeout = cfg.GitTimeout()

	machine := statemachine.New(repo.Root, tr, exec, audit, model)
	if err := machine.Refresh(); err != nil {
		logging.Log.Warn().Err(err).Msg("initial snapshot build failed")
	}

	program := tea.NewProgram(ui.New(machine))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run UI: %w", err)
	}
	return nil
}
