// Package statemachine sequences the gitalky pipeline: translate, preview,
// confirm dangerous operations, execute, and schedule snapshot refreshes. It
// holds the only mutable state shared across the UI and the pipeline
// components.
package statemachine

import (
	"context"
	"errors"
	"time"

	"github.com/d4ncer/gitalky/internal/auditlog"
	"github.com/d4ncer/gitalky/internal/executor"
	"github.com/d4ncer/gitalky/internal/llmclient"
	"github.com/d4ncer/gitalky/internal/runid"
	"github.com/d4ncer/gitalky/internal/snapshot"
	"github.com/d4ncer/gitalky/internal/translator"
	"github.com/d4ncer/gitalky/internal/validator"
)

// State names one of the six stages the pipeline can be in.
type State string

const (
	StateInput            State = "input"
	StateTranslating      State = "translating"
	StatePreview          State = "preview"
	StateConfirmDangerous State = "confirm_dangerous"
	StateExecuting        State = "executing"
	StateShowingOutput    State = "showing_output"
)

// Mode reflects whether the model is currently reachable.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeOffline Mode = "offline"
)

// confirmWord is the single literal the user must type to proceed past
// ConfirmDangerous.
const confirmWord = "CONFIRM"

// idleRefreshThreshold is the number of consecutive idle ticks that forces a
// snapshot rebuild even without an explicit needs_refresh signal.
const idleRefreshThreshold = 10

// reachabilityTimeout bounds the offline-mode probe.
const reachabilityTimeout = 2 * time.Second

// errNotConfirmed is returned by Confirm when the user's input is not the
// literal confirm word.
var errNotConfirmed = errors.New("statemachine: confirmation word did not match")

// Translator is the capability the machine needs to turn a query into a
// Validated Command.
type Translator interface {
	Translate(ctx context.Context, query string) (*validator.ValidatedCommand, error)
}

// Machine owns the current state, the live Repository Snapshot, the command
// under review, and the most recent execution outcome.
type Machine struct {
	RepoRoot string

	Translator Translator
	Executor   *executor.Executor
	Audit      *auditlog.Logger
	Model      *llmclient.Client

	state State
	mode  Mode

	snap *snapshot.Snapshot

	proposed *validator.ValidatedCommand
	outcome  *executor.CommandOutcome
	lastErr  error
	runID    string

	needsRefresh bool
	idleCycles   int
}

// New constructs a Machine in state Input, mode Normal, with no snapshot
// loaded yet. Call Refresh to populate the initial snapshot.
func New(repoRoot string, tr Translator, exec *executor.Executor, audit *auditlog.Logger, model *llmclient.Client) *Machine {
	return &Machine{
		RepoRoot:   repoRoot,
		Translator: tr,
		Executor:   exec,
		Audit:      audit,
		Model:      model,
		state:      StateInput,
		mode:       ModeNormal,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Mode returns the current reachability mode.
func (m *Machine) Mode() Mode { return m.mode }

// Snapshot returns the last built Repository Snapshot, or nil before the
// first refresh.
func (m *Machine) Snapshot() *snapshot.Snapshot { return m.snap }

// Proposed returns the command currently under review in Preview or
// ConfirmDangerous, or nil outside those states.
func (m *Machine) Proposed() *validator.ValidatedCommand { return m.proposed }

// Outcome returns the most recent Command Outcome shown in ShowingOutput.
func (m *Machine) Outcome() *executor.CommandOutcome { return m.outcome }

// LastError returns the error displayed in ShowingOutput, if the last
// transition arrived via a translation or validation failure.
func (m *Machine) LastError() error { return m.lastErr }

// RunID returns the run id minted for the current translate→execute cycle,
// or "" before the first SubmitQuery call.
func (m *Machine) RunID() string { return m.runID }

// ProbeReachability checks whether the model endpoint answers within
// reachabilityTimeout and updates Mode accordingly. Called on startup and on
// the user's explicit refresh key.
func (m *Machine) ProbeReachability(ctx context.Context) {
	if m.Model == nil {
		m.mode = ModeOffline
		return
	}
	ctx, cancel := context.WithTimeout(ctx, reachabilityTimeout)
	defer cancel()
	if m.Model.Reachable(ctx) {
		m.mode = ModeNormal
	} else {
		m.mode = ModeOffline
	}
}

// Refresh rebuilds the Repository Snapshot and clears needs_refresh and
// idle_cycles. Callers invoke this from Input or ShowingOutput per the
// refresh scheduling rule; Refresh itself does not check the current state.
func (m *Machine) Refresh() error {
	snap, err := snapshot.Build(m.RepoRoot)
	if err != nil {
		return err
	}
	m.snap = snap
	m.needsRefresh = false
	m.idleCycles = 0
	return nil
}

// ShouldRefresh reports whether the caller should call Refresh now, per the
// rule: while in Input or ShowingOutput, refresh when needs_refresh is set
// or idle_cycles has reached the threshold.
func (m *Machine) ShouldRefresh() bool {
	if m.state != StateInput && m.state != StateShowingOutput {
		return false
	}
	return m.needsRefresh || m.idleCycles >= idleRefreshThreshold
}

// Tick advances the idle-cycle counter: callers pass hadInput=true when the
// 100ms poll observed user input (resetting the counter to 0), and false on
// a bare timeout (incrementing it).
func (m *Machine) Tick(hadInput bool) {
	if hadInput {
		m.idleCycles = 0
		return
	}
	m.idleCycles++
}

// SubmitQuery accepts a non-empty query from Input. In Normal mode it calls
// the Translator; in Offline mode the query is treated as a raw command and
// goes directly to the Validator.
func (m *Machine) SubmitQuery(ctx context.Context, query string) {
	if m.state != StateInput {
		return
	}
	m.runID = runid.New()
	if m.mode == ModeOffline {
		m.validateRaw(query)
		return
	}

	m.state = StateTranslating
	ctx = runid.WithContext(ctx, m.runID)
	vc, err := m.Translator.Translate(ctx, query)
	if err != nil {
		m.lastErr = err
		m.state = StateShowingOutput
		return
	}
	m.proposed = vc
	m.state = StatePreview
}

// validateRaw re-checks and tags a command without going through the
// Translator, used in Offline mode.
func (m *Machine) validateRaw(command string) {
	vc, err := validator.Validate(command)
	if err != nil {
		m.lastErr = err
		m.state = StateShowingOutput
		return
	}
	m.proposed = vc
	m.state = StatePreview
}

// EditPreview re-validates an edited command string while still in Preview,
// replacing the proposed command on success.
func (m *Machine) EditPreview(command string) error {
	if m.state != StatePreview {
		return errors.New("statemachine: EditPreview called outside Preview")
	}
	vc, err := validator.Validate(command)
	if err != nil {
		return err
	}
	m.proposed = vc
	return nil
}

// Advance moves from Preview to ConfirmDangerous or Executing, depending on
// whether the proposed command is tagged dangerous.
func (m *Machine) Advance() {
	if m.state != StatePreview || m.proposed == nil {
		return
	}
	if m.proposed.IsDangerous {
		m.state = StateConfirmDangerous
	} else {
		m.state = StateExecuting
	}
}

// Confirm accepts the user's typed confirmation word in ConfirmDangerous. On
// a match it advances to Executing; otherwise it returns errNotConfirmed and
// stays in ConfirmDangerous.
func (m *Machine) Confirm(word string) error {
	if m.state != StateConfirmDangerous {
		return errors.New("statemachine: Confirm called outside ConfirmDangerous")
	}
	if word != confirmWord {
		return errNotConfirmed
	}
	m.state = StateExecuting
	return nil
}

// Cancel returns to Input from Preview, ConfirmDangerous, or ShowingOutput.
// It never affects an in-flight model call; a result that arrives after
// Cancel is discarded by the caller, not by the Machine.
func (m *Machine) Cancel() {
	switch m.state {
	case StatePreview, StateConfirmDangerous, StateShowingOutput:
		m.proposed = nil
		m.outcome = nil
		m.lastErr = nil
		m.state = StateInput
	}
}

// Execute runs the proposed command through the Executor from Executing. Any
// outcome the Executor returns, success or a non-zero exit, gets an exec
// audit entry and sets needs_refresh; only a transport-level Executor error
// (timeout, spawn failure) skips both. It then transitions to ShowingOutput.
func (m *Machine) Execute() {
	if m.state != StateExecuting || m.proposed == nil {
		return
	}

	outcome, err := m.Executor.Execute(m.proposed.Command)
	m.outcome = outcome
	m.lastErr = err

	if err == nil && outcome != nil {
		m.needsRefresh = true
		if m.Audit != nil {
			_ = m.Audit.LogExec(m.RepoRoot, m.proposed.Command, outcome.ExitCode, m.runID)
		}
	}
	m.state = StateShowingOutput
}

// Dismiss returns to Input from ShowingOutput, clearing the last outcome.
func (m *Machine) Dismiss() {
	if m.state != StateShowingOutput {
		return
	}
	m.proposed = nil
	m.outcome = nil
	m.lastErr = nil
	m.state = StateInput
}
