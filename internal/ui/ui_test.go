package ui

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/d4ncer/gitalky/internal/executor"
	"github.com/d4ncer/gitalky/internal/statemachine"
	"github.com/d4ncer/gitalky/internal/validator"
)

type fakeTranslator struct {
	vc  *validator.ValidatedCommand
	err error
}

func (f *fakeTranslator) Translate(ctx context.Context, query string) (*validator.ValidatedCommand, error) {
	return f.vc, f.err
}

func newTestModel(t *testing.T, tr statemachine.Translator) Model {
	t.Helper()
	repo := initGitRepo(t)
	m := statemachine.New(repo, tr, executor.New(repo), nil, nil)
	return New(m)
}

func TestHandleInputKey_EnterSubmitsQuery(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status"}}
	m := newTestModel(t, tr)
	m.input.SetValue("what's the status")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := updated.(Model)
	if cmd == nil {
		t.Fatal("expected a command to run the submission")
	}
	cmd()

	if mm.machine.State() != statemachine.StatePreview {
		t.Fatalf("State = %q, want Preview", mm.machine.State())
	}
}

func TestHandleInputKey_EmptyEnterDoesNothing(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status"}}
	m := newTestModel(t, tr)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := updated.(Model)
	if cmd != nil {
		t.Error("expected no command for empty query submission")
	}
	if mm.machine.State() != statemachine.StateInput {
		t.Fatalf("State = %q, want Input", mm.machine.State())
	}
}

func TestHandlePreviewKey_EscCancels(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status"}}
	m := newTestModel(t, tr)
	m.machine.SubmitQuery(context.Background(), "status")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	mm := updated.(Model)
	if mm.machine.State() != statemachine.StateInput {
		t.Fatalf("State = %q, want Input after Esc", mm.machine.State())
	}
}

func TestHandlePreviewKey_EnterAdvancesSafeCommandToShowingOutput(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status"}}
	m := newTestModel(t, tr)
	m.machine.SubmitQuery(context.Background(), "status")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := updated.(Model)
	if mm.machine.State() != statemachine.StateShowingOutput {
		t.Fatalf("State = %q, want ShowingOutput after executing a safe command", mm.machine.State())
	}
}

func TestHandlePreviewKey_EnterOnDangerousGoesToConfirmDangerous(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "push --force", IsDangerous: true}}
	m := newTestModel(t, tr)
	m.machine.SubmitQuery(context.Background(), "force push")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := updated.(Model)
	if mm.machine.State() != statemachine.StateConfirmDangerous {
		t.Fatalf("State = %q, want ConfirmDangerous", mm.machine.State())
	}
}

func TestHandleConfirmKey_WrongWordStaysPut(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "push --force", IsDangerous: true}}
	m := newTestModel(t, tr)
	m.machine.SubmitQuery(context.Background(), "force push")
	m.machine.Advance()

	m.confirm.SetValue("nope")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := updated.(Model)
	if mm.machine.State() != statemachine.StateConfirmDangerous {
		t.Fatalf("State = %q, want to remain ConfirmDangerous", mm.machine.State())
	}
}

func TestHandleConfirmKey_LiteralWordExecutes(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status", IsDangerous: true}}
	m := newTestModel(t, tr)
	m.machine.SubmitQuery(context.Background(), "force push")
	m.machine.Advance()

	m.confirm.SetValue("CONFIRM")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	mm := updated.(Model)
	if mm.machine.State() != statemachine.StateShowingOutput {
		t.Fatalf("State = %q, want ShowingOutput", mm.machine.State())
	}
}

func TestTick_IncrementsIdleCyclesTowardRefresh(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status"}}
	m := newTestModel(t, tr)
	if err := m.machine.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := m.machine.Snapshot().Generation

	var updated tea.Model = m
	for i := 0; i < 10; i++ {
		updated, _ = updated.Update(tickMsg{})
	}
	mm := updated.(Model)
	if mm.machine.Snapshot().Generation <= before {
		t.Error("expected a snapshot rebuild after 10 idle ticks")
	}
}

func TestView_RendersWithoutPanicking(t *testing.T) {
	tr := &fakeTranslator{vc: &validator.ValidatedCommand{Command: "status"}}
	m := newTestModel(t, tr)

	if out := m.View(); !strings.Contains(out, "gitalky") {
		t.Errorf("View() = %q, missing header", out)
	}
}

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-m", "initial")
	return dir
}

func runGit(t *testing.T, cwd string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, string(out))
	}
}
