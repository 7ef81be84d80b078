// Package install renders a live install session: per-item status, a
// progress bar, and a tail of streamed brew output.
package install

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zreik-blanc/pakky/internal/orchestrator"
	"github.com/zreik-blanc/pakky/internal/queue"
	"github.com/zreik-blanc/pakky/internal/tui/components"
)

const logTailLines = 8

// Model is the bubbletea model for an install session.
type Model struct {
	styles  components.Styles
	spinner spinner.Model
	bridge  *Bridge

	items    []queue.Item
	statuses map[string]queue.Status

	sessionStatus string
	logTail       []string
	cancelling    bool
	done          bool
	err           error
	width         int
	height        int
}

// NewModel creates the install view over a queue snapshot and a running
// bridge. The snapshot fixes display order; statuses update via bus events.
func NewModel(styles components.Styles, items []queue.Item, bridge *Bridge) Model {
	statuses := make(map[string]queue.Status, len(items))
	for _, it := range items {
		statuses[it.ID] = it.Status
	}
	return Model{
		styles:        styles,
		spinner:       components.NewSpinner(styles),
		bridge:        bridge,
		items:         items,
		statuses:      statuses,
		sessionStatus: string(orchestrator.SessionChecking),
	}
}

// Err returns the session error after the program exits.
func (m Model) Err() error {
	return m.err
}

// Init starts the spinner and the session bridge.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.Start())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				m.bridge.Cancel()
			}
		}

	case ItemStatusMsg:
		m.statuses[msg.ItemID] = queue.Status(msg.Status)
		cmds = append(cmds, m.bridge.NextMsg())

	case SessionStatusMsg:
		m.sessionStatus = msg.Status
		cmds = append(cmds, m.bridge.NextMsg())

	case LogLineMsg:
		m.logTail = append(m.logTail, fmt.Sprintf("%s  %s", msg.ItemID, msg.Line))
		if len(m.logTail) > logTailLines {
			m.logTail = m.logTail[len(m.logTail)-logTailLines:]
		}
		cmds = append(cmds, m.bridge.NextMsg())

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, tea.Batch(cmds...)
}

// View renders the session screen.
func (m Model) View() string {
	var b strings.Builder

	title := "Installing packages"
	if m.cancelling {
		title = "Cancelling (running installs will finish)"
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	// Progress bar over items that reached a terminal status.
	finished := 0
	for _, it := range m.items {
		switch m.statuses[it.ID] {
		case queue.StatusSuccess, queue.StatusFailed, queue.StatusSkipped, queue.StatusAlreadyInstalled:
			finished++
		}
	}
	if total := len(m.items); total > 0 {
		pct := float64(finished) / float64(total)
		barWidth := 20
		filled := int(pct * float64(barWidth))
		if filled > barWidth {
			filled = barWidth
		}
		bar := m.styles.ProgressFull.Render(strings.Repeat("█", filled)) +
			m.styles.ProgressEmpty.Render(strings.Repeat("░", barWidth-filled))
		b.WriteString(fmt.Sprintf("  %d/%d  %s  %d%%\n\n", finished, total, bar, int(pct*100)))
	}

	for _, it := range m.items {
		status := m.statuses[it.ID]
		line := fmt.Sprintf("  %s %s", m.itemIcon(status), it.Name)
		if it.Type == queue.TypeCask {
			line += m.styles.Muted.Render(" (cask)")
		}

		switch status {
		case queue.StatusSuccess, queue.StatusAlreadyInstalled:
			line = m.styles.Success.Render(line)
		case queue.StatusSkipped:
			line = m.styles.Muted.Render(line)
		case queue.StatusFailed:
			line = m.styles.Error.Render(line)
		case queue.StatusInstalling:
			line = m.styles.Body.Render(line)
		default:
			line = m.styles.Muted.Render(line)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(m.logTail) > 0 {
		b.WriteString("\n")
		var tail strings.Builder
		for i, line := range m.logTail {
			if i > 0 {
				tail.WriteString("\n")
			}
			tail.WriteString(m.styles.LogLine.Render(line))
		}
		b.WriteString(m.styles.Panel.Render(tail.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.styles.Footer.Render("  q: quit"))
	} else {
		b.WriteString(m.styles.Footer.Render("  q: cancel"))
	}

	return b.String()
}

func (m Model) itemIcon(s queue.Status) string {
	switch s {
	case queue.StatusSuccess, queue.StatusAlreadyInstalled:
		return m.styles.StatusDone
	case queue.StatusInstalling:
		return m.spinner.View()
	case queue.StatusSkipped:
		return m.styles.StatusSkipped
	case queue.StatusFailed:
		return m.styles.StatusFailed
	default:
		return m.styles.StatusPending
	}
}
