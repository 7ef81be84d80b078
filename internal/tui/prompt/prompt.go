// Package prompt collects script inputs interactively with small bubbletea
// programs, one per question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zreik-blanc/pakky/internal/script"
	"github.com/zreik-blanc/pakky/internal/tui/components"
)

// Provider implements script.InputProvider on top of the terminal.
type Provider struct {
	styles components.Styles
}

// NewProvider creates a terminal input provider.
func NewProvider(styles components.Styles) *Provider {
	return &Provider{styles: styles}
}

// Input asks for one variable value. Esc declines.
func (p *Provider) Input(req script.InputRequest) (string, bool, error) {
	ti := textinput.New()
	ti.Placeholder = req.Default
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 48

	m := inputModel{styles: p.styles, req: req, input: ti}
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", false, fmt.Errorf("running input prompt: %w", err)
	}
	final := out.(inputModel)
	if final.declined {
		return "", false, nil
	}
	value := strings.TrimSpace(final.input.Value())
	if value == "" {
		value = req.Default
	}
	return value, true, nil
}

// Confirm asks a yes/no question. Enter and y accept; n and esc decline.
func (p *Provider) Confirm(question string) (bool, error) {
	m := confirmModel{styles: p.styles, question: question}
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return false, fmt.Errorf("running confirm prompt: %w", err)
	}
	return out.(confirmModel).accepted, nil
}

type inputModel struct {
	styles   components.Styles
	req      script.InputRequest
	input    textinput.Model
	declined bool
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.declined = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render(m.req.Message))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("enter: accept  esc: skip step"))
	b.WriteString("\n")
	return b.String()
}

type confirmModel struct {
	styles   components.Styles
	question string
	accepted bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y", "enter":
			m.accepted = true
			return m, tea.Quit
		case "n", "N", "esc", "ctrl+c", "q":
			m.accepted = false
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render(m.question))
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("y/enter: yes  n/esc: no"))
	b.WriteString("\n")
	return b.String()
}
