package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/quickjs-bridge/config"
	"github.com/wippyai/quickjs-bridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// visibleEntries bounds how much history is rendered.
const visibleEntries = 20

type entry struct {
	err    error
	code   string
	result string
	steps  int
}

type replModel struct {
	ctx      context.Context
	session  *runtime.Session
	input    textinput.Model
	history  []entry
	recall   int
	maxSteps int
	mode     string
	busy     bool
}

type evalResultMsg struct {
	entry
}

func newReplModel(ctx context.Context, s *runtime.Session, cfg *config.Config) *replModel {
	ti := textinput.New()
	ti.Placeholder = "1 + 1"
	ti.Prompt = promptStyle.Render("js> ")
	ti.Width = 72
	ti.Focus()

	return &replModel{
		ctx:      ctx,
		session:  s,
		input:    ti,
		maxSteps: cfg.Engine.MaxSteps,
		mode:     cfg.Engine.Mode,
	}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "enter":
			code := strings.TrimSpace(m.input.Value())
			if code == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.input.SetValue("")
			m.recall = len(m.history) + 1
			return m, m.eval(code)

		case "up":
			if m.recall > 0 {
				m.recall--
				m.input.SetValue(m.history[m.recall].code)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall < len(m.history)-1 {
				m.recall++
				m.input.SetValue(m.history[m.recall].code)
				m.input.CursorEnd()
			} else {
				m.recall = len(m.history)
				m.input.SetValue("")
			}
			return m, nil
		}

	case evalResultMsg:
		m.busy = false
		m.history = append(m.history, msg.entry)
		m.recall = len(m.history)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// eval runs code and then drains the event loop, so that promise
// callbacks and expired timers run before the next prompt.
func (m *replModel) eval(code string) tea.Cmd {
	return func() tea.Msg {
		e := entry{code: code}
		v, err := m.session.Eval(m.ctx, code)
		if err != nil {
			e.err = err
			return evalResultMsg{e}
		}
		e.result = formatResult(v)
		e.steps, e.err = drain(m.ctx, m.session, m.maxSteps)
		return evalResultMsg{e}
	}
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("QuickJS"))
	b.WriteString(" ")
	b.WriteString(helpStyle.Render(fmt.Sprintf("mode %s, session %s", m.mode, m.session.ID())))
	b.WriteString("\n\n")

	start := max(0, len(m.history)-visibleEntries)
	for _, e := range m.history[start:] {
		b.WriteString(promptStyle.Render("js> "))
		b.WriteString(codeStyle.Render(e.code))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", e.err)))
		} else {
			b.WriteString(resultStyle.Render(strings.TrimRight(e.result, "\n")))
			if e.steps > 0 {
				b.WriteString(helpStyle.Render(fmt.Sprintf("  (%d loop steps)", e.steps)))
			}
		}
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString(helpStyle.Render("running..."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter eval • ↑/↓ history • ctrl+c quit"))
	return b.String()
}

func runInteractive(ctx context.Context, s *runtime.Session, cfg *config.Config) error {
	p := tea.NewProgram(newReplModel(ctx, s, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
