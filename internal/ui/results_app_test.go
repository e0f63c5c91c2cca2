package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/recsvd/internal/emoji"
	"github.com/yildizm/recsvd/internal/pipeline"
	"github.com/yildizm/recsvd/internal/predictor"
)

func testOutcome() *pipeline.Outcome {
	return &pipeline.Outcome{
		RunID:  "r1",
		UserID: "42",
		Result: &predictor.Result{
			UserID: "42",
			Recommendations: []predictor.Recommendation{
				{ItemID: "7", Name: "Lamp", Score: 0.9},
				{ItemID: "3", Name: "Chair", Score: 0.4},
			},
			Eligible: 10,
			Excluded: 2,
		},
	}
}

func newReadyModel(t *testing.T, run RunFunc) *ResultsModel {
	t.Helper()
	emoji.SetEmojiDisabled(true)
	t.Cleanup(func() { emoji.SetEmojiDisabled(false) })

	m := NewResultsModel(context.Background(), run)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestResultsModelRunCommand(t *testing.T) {
	calls := 0
	m := newReadyModel(t, func(ctx context.Context) (*pipeline.Outcome, error) {
		calls++
		return testOutcome(), nil
	})

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init() should return the run command")
	}
	if !strings.Contains(m.View(), "Computing recommendations") {
		t.Errorf("Expected running view, got:\n%s", m.View())
	}

	m.Update(cmd())
	if calls != 1 {
		t.Errorf("Expected 1 run, got %d", calls)
	}
	view := m.View()
	for _, want := range []string{"user 42", "Lamp", "Chair", "item 7"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q:\n%s", want, view)
		}
	}
	if m.Outcome() == nil {
		t.Error("Outcome() should return the last run")
	}
}

func TestResultsModelNavigation(t *testing.T) {
	m := newReadyModel(t, nil)
	m.Update(runCompleteMsg{outcome: testOutcome()})

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("Expected selection 1 after down, got %d", m.selected)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selected != 1 {
		t.Errorf("Selection must stop at the last item, got %d", m.selected)
	}
	if !strings.Contains(m.View(), "item 3") {
		t.Errorf("Expected selected item detail, got:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.selected != 0 {
		t.Errorf("Selection must stop at the first item, got %d", m.selected)
	}
}

func TestResultsModelError(t *testing.T) {
	m := newReadyModel(t, nil)
	m.Update(runErrorMsg{err: errors.New("model file missing")})

	view := m.View()
	if !strings.Contains(view, "Run failed") || !strings.Contains(view, "model file missing") {
		t.Errorf("Expected error view, got:\n%s", view)
	}
}

func TestRunErrorSurvivesQuit(t *testing.T) {
	m := newReadyModel(t, nil)
	runErr := errors.New("type=not_found: model file missing")
	m.Update(runErrorMsg{err: runErr})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	if err := finalError(m, nil); !errors.Is(err, runErr) {
		t.Errorf("finalError() = %v, want %v", err, runErr)
	}

	m.Update(runCompleteMsg{outcome: testOutcome()})
	if err := finalError(m, nil); err != nil {
		t.Errorf("A successful re-run should clear the error, got %v", err)
	}

	programErr := errors.New("program killed")
	if err := finalError(m, programErr); !errors.Is(err, programErr) {
		t.Errorf("finalError() = %v, want %v", err, programErr)
	}
}

func TestResultsModelQuit(t *testing.T) {
	m := newReadyModel(t, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if !strings.Contains(m.View(), "Bye") {
		t.Errorf("Unexpected quit view %q", m.View())
	}
}

func TestSetThemeByName(t *testing.T) {
	t.Cleanup(func() { SetThemeByName("default") })

	if !SetThemeByName("high-contrast") || GetTheme().Name != "high-contrast" {
		t.Error("Expected high-contrast theme to be set")
	}
	if SetThemeByName("neon") {
		t.Error("Unknown theme should be rejected")
	}
}
