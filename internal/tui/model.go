// Package tui is an interactive console for asking questions against one
// ingested document session.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

// AskPort is the console-facing subset of the document service.
type AskPort interface {
	Ask(ctx context.Context, sessionID, question string, k int) (domain.AnswerResult, error)
}

// Model is the Bubble Tea model for the console.
type Model struct {
	service   AskPort
	session   domain.Session
	input     textinput.Model
	viewport  viewport.Model
	result    *domain.AnswerResult
	status    string
	ready     bool
}

func New(service AskPort, session domain.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		session:  session,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Session %s ready (%d chunks).", session.ID, session.ChunkCount),
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + preview, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				res, err := m.service.Ask(context.Background(), m.session.ID, q, 0)
				if err != nil {
					m.status = "Error: " + err.Error()
					m.result = nil
				} else {
					m.status = fmt.Sprintf("Answered %q", q)
					m.result = &res
				}
				m.viewport.SetContent(m.renderAnswer())
				m.input.SetValue("")
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A  " + m.session.Filename)
	preview := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.session.Preview)
	answer := answerBoxStyle.Render(m.viewport.View())
	input := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + preview + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.result == nil {
		return "No answer yet. Ask something about the document."
	}
	r := m.result
	var b strings.Builder
	fmt.Fprintf(&b, "%s  confidence=%.2f\n\n", labelStyle.Render("Answer:"), r.Confidence)
	b.WriteString(r.Answer)
	if r.Reason != "" {
		fmt.Fprintf(&b, "\n\n%s %s", labelStyle.Render("Reason:"), r.Reason)
	}
	if r.Clause != "" {
		fmt.Fprintf(&b, "\n\n%s %s", labelStyle.Render("Clause:"), r.Clause)
	}
	if len(r.References) > 0 {
		fmt.Fprintf(&b, "\n\n%s %s", labelStyle.Render("References:"), strings.Join(r.References, ", "))
	}
	return b.String()
}

var (
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
