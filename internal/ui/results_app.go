package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/recsvd/internal/emoji"
	"github.com/yildizm/recsvd/internal/pipeline"
)

// ResultsModel shows a ranked recommendation list and lets the user
// move through it and re-run the pipeline.
type ResultsModel struct {
	ctx      context.Context
	run      RunFunc
	styles   *Styles
	width    int
	height   int
	outcome  *pipeline.Outcome
	err      error
	selected int
	running  bool
	ready    bool
	quitting bool
}

// NewResultsModel creates a results model around run
func NewResultsModel(ctx context.Context, run RunFunc) *ResultsModel {
	return &ResultsModel{ctx: ctx, run: run, styles: GetStyles()}
}

// Init starts the first run
func (m *ResultsModel) Init() tea.Cmd {
	return m.startRun()
}

// Update handles messages
func (m *ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < m.itemCount()-1 {
				m.selected++
			}
		case "r":
			if !m.running {
				return m, m.startRun()
			}
		}

	case runCompleteMsg:
		m.running = false
		m.err = nil
		m.outcome = msg.outcome
		m.selected = 0

	case runErrorMsg:
		m.running = false
		m.err = msg.err
	}

	return m, nil
}

// View renders the model
func (m *ResultsModel) View() string {
	if m.quitting {
		return "Bye " + emoji.GetEmoji("door") + "\n"
	}
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	switch {
	case m.running:
		b.WriteString(emoji.GetEmoji("model") + " Computing recommendations...\n")
	case m.err != nil:
		b.WriteString(m.styles.Error.Render(emoji.GetEmoji("error")+" Run failed") + "\n\n")
		b.WriteString(m.styles.Muted.Render(m.err.Error()) + "\n")
	case m.outcome != nil:
		m.renderOutcome(&b)
	default:
		b.WriteString("No recommendations yet\n")
	}

	b.WriteString("\n" + m.styles.Muted.Render("↑/↓ move • r re-run • q quit"))

	return m.styles.Box.
		Width(max(m.width-4, 20)).
		Render(b.String())
}

func (m *ResultsModel) renderOutcome(b *strings.Builder) {
	o := m.outcome
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("%s Recommendations for user %s", emoji.GetEmoji("user"), o.UserID)) + "\n")
	if o.Result == nil {
		return
	}
	fmt.Fprintf(b, "%s\n\n", m.styles.Muted.Render(fmt.Sprintf("%d eligible • %d already consumed • %s",
		o.Result.Eligible, o.Result.Excluded, o.Duration)))

	if len(o.Result.Recommendations) == 0 {
		b.WriteString("No eligible items left to recommend\n")
		return
	}
	for i, rec := range o.Result.Recommendations {
		line := fmt.Sprintf("%2d. %-40s %10.4f", i+1, truncate(rec.Name, 40), rec.Score)
		if i == m.selected {
			b.WriteString(m.styles.ListSelected.Render(line) + "\n")
		} else {
			b.WriteString(m.styles.ListItem.Render(line) + "\n")
		}
	}

	rec := o.Result.Recommendations[m.selected]
	b.WriteString("\n" + m.styles.Info.Render(fmt.Sprintf("%s item %s", emoji.GetEmoji("item"), rec.ItemID)))
	if o.RecordPath != "" {
		b.WriteString("  " + m.styles.Muted.Render(emoji.GetEmoji("save")+" "+o.RecordPath))
	}
	b.WriteString("\n")
}

// Err returns the error of the most recent run, or nil if it succeeded
func (m *ResultsModel) Err() error {
	return m.err
}

// Outcome returns the last successful run, if any
func (m *ResultsModel) Outcome() *pipeline.Outcome {
	return m.outcome
}

func (m *ResultsModel) startRun() tea.Cmd {
	m.running = true
	return CreateRunCommand(m.ctx, m.run)
}

func (m *ResultsModel) itemCount() int {
	if m.outcome == nil || m.outcome.Result == nil {
		return 0
	}
	return len(m.outcome.Result.Recommendations)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the results viewer in the alternate screen. It returns the
// error of the last pipeline run so callers can exit non-zero.
func Run(ctx context.Context, run RunFunc) error {
	model := NewResultsModel(ctx, run)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	return finalError(p.Run())
}

// finalError prefers a program failure over the last run's error
func finalError(final tea.Model, err error) error {
	if err != nil {
		return err
	}
	if m, ok := final.(*ResultsModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
