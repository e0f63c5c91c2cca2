package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/recsvd/internal/pipeline"
)

// RunFunc produces one recommendation run
type RunFunc func(ctx context.Context) (*pipeline.Outcome, error)

// Message types shared by UI models
type runCompleteMsg struct {
	outcome *pipeline.Outcome
}

type runErrorMsg struct {
	err error
}

// CreateRunCommand creates a tea command that runs the pipeline
func CreateRunCommand(ctx context.Context, run RunFunc) tea.Cmd {
	return func() tea.Msg {
		outcome, err := run(ctx)
		if err != nil {
			return runErrorMsg{err: err}
		}
		return runCompleteMsg{outcome: outcome}
	}
}
