// Package tui renders a live dashboard for a porting run: current unit,
// progress through the ordered corpus, skipped units with their reason
// codes, and the final tally.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"portforge/internal/pipeline"
)

// programRef is an indirect pointer to the tea.Program so the pipeline
// goroutine can send messages. It must be set after tea.NewProgram
// returns but before Run.
type programRef struct {
	p *tea.Program
}

// Config holds what the dashboard needs from the CLI layer.
type Config struct {
	// Start runs the pipeline and reports per-unit progress through the
	// given callback. It is invoked once, on its own goroutine.
	Start func(ctx context.Context, onProgress pipeline.ProgressFunc) (*pipeline.Stats, error)

	program *programRef
}

// unitMsg is sent after each unit is handled.
type unitMsg struct {
	name      string
	processed int
	total     int
}

// doneMsg is sent when the run completes.
type doneMsg struct {
	stats *pipeline.Stats
	err   error
}

// Model is the dashboard's Bubble Tea model.
type Model struct {
	config  Config
	spinner spinner.Model

	current   string
	processed int
	total     int
	skips     []pipeline.Skip

	done  bool
	stats *pipeline.Stats
	err   error
}

// New creates the dashboard model.
func New(cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return Model{config: cfg, spinner: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun())
}

// startRun launches the pipeline on its own goroutine; progress arrives
// as messages via the program ref.
func (m Model) startRun() tea.Cmd {
	ref := m.config.program
	start := m.config.Start
	return func() tea.Msg {
		stats, err := start(context.Background(), func(unit string, processed, total int) {
			if ref != nil && ref.p != nil {
				ref.p.Send(unitMsg{name: unit, processed: processed, total: total})
			}
		})
		return doneMsg{stats: stats, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil

	case unitMsg:
		m.current = msg.name
		m.processed = msg.processed
		m.total = msg.total
		return m, nil

	case doneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		if m.stats != nil {
			m.skips = m.stats.Skipped
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("portforge"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("porting run"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Run failed: " + m.err.Error()))
		b.WriteString("\n")
	case m.done:
		b.WriteString(successStyle.Render("Run complete"))
		b.WriteString("\n")
		if m.stats != nil {
			fmt.Fprintf(&b, "  %d units: %d converted, %d already done, %d skipped\n",
				m.stats.Total, m.stats.Converted, m.stats.AlreadyDone, len(m.stats.Skipped))
		}
	default:
		fmt.Fprintf(&b, "%s converting %s", m.spinner.View(), m.current)
		if m.total > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d/%d)", m.processed, m.total)))
		}
		b.WriteString("\n")
	}

	if len(m.skips) > 0 {
		b.WriteString("\n")
		for _, s := range m.skips {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  skipped %s [%s]", s.Name, s.Reason)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(helpStyle.Render("enter/q to exit"))
	} else {
		b.WriteString(helpStyle.Render("q to quit"))
	}
	b.WriteString("\n")

	return b.String()
}

// Run starts the dashboard and blocks until it exits. It returns the
// run's stats so the CLI can set the exit code.
func Run(cfg Config) (*pipeline.Stats, error) {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		return m.stats, m.err
	}
	return nil, nil
}
