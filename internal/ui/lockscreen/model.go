// Package lockscreen renders the non-dismissible full-screen block for
// a persistent final alert. It offers exactly two ways out: fill in a
// real response, or skip with a reason. There is no dismiss.
package lockscreen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/tvo/signaldesk/internal/keys"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/theme"
)

// FillRequestedMsg signals the parent to open the response form while
// keeping the lock-out engaged.
type FillRequestedMsg struct {
	SignalID string
}

// SkipSubmittedMsg signals the parent to resolve the session with the
// default response and the given reason.
type SkipSubmittedMsg struct {
	SignalID string
	Reason   string
}

// formBindings holds the skip form value on the heap so huh's Value()
// pointer remains valid across Bubble Tea model copies.
type formBindings struct {
	reason string
}

// Model is the lock screen view.
type Model struct {
	signal   *model.Signal
	skipForm *huh.Form
	fb       *formBindings
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new lock screen model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		fb:     &formBindings{},
		keys:   k,
		width:  width,
		height: height,
	}
}

// Engage shows the lock for a signal.
func (m *Model) Engage(sig model.Signal) {
	m.signal = &sig
	m.skipForm = nil
	m.fb.reason = ""
}

// Release clears the lock state.
func (m *Model) Release() {
	m.signal = nil
	m.skipForm = nil
}

// Signal returns the locked signal, or nil when released.
func (m Model) Signal() *model.Signal {
	return m.signal
}

// Update handles messages for the lock screen. Every key except the
// fill/skip paths is swallowed: the lock is not dismissible.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.signal == nil {
		return m, nil
	}

	if m.skipForm != nil {
		mdl, cmd := m.skipForm.Update(msg)
		if f, ok := mdl.(*huh.Form); ok {
			m.skipForm = f
		}

		if m.skipForm.State == huh.StateCompleted {
			reason := strings.TrimSpace(m.fb.reason)
			id := m.signal.ID
			m.skipForm = nil
			if reason == "" {
				return m, nil
			}
			return m, func() tea.Msg {
				return SkipSubmittedMsg{SignalID: id, Reason: reason}
			}
		}
		if m.skipForm.State == huh.StateAborted {
			m.skipForm = nil
			return m, nil
		}
		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Fill):
			id := m.signal.ID
			return m, func() tea.Msg {
				return FillRequestedMsg{SignalID: id}
			}

		case key.Matches(keyMsg, m.keys.Skip):
			m.fb.reason = ""
			m.skipForm = m.buildSkipForm()
			return m, m.skipForm.Init()
		}
	}

	return m, nil
}

// buildSkipForm creates the skip-reason input form.
func (m *Model) buildSkipForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Skip reason").
				Description("Why are you not answering this signal?").
				Value(&m.fb.reason).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a reason is required")
					}
					return nil
				}),
		),
	).WithWidth(m.width - 8)
}

// View renders the full-screen lock.
func (m Model) View() string {
	if m.signal == nil {
		return ""
	}

	banner := theme.LockStyle.Width(m.width - 4).Render("RESPONSE REQUIRED")
	question := lipgloss.NewStyle().Bold(true).Render(m.signal.Question)
	meta := theme.HelpStyle.Render(fmt.Sprintf("from %s", m.signal.PublisherName))

	remaining := time.Until(m.signal.Deadline)
	if remaining < 0 {
		remaining = 0
	}
	countdown := theme.DeadlineStyle(0).Render(
		fmt.Sprintf("Deadline in %ds — default answer will be recorded", int(remaining.Seconds())),
	)

	var body string
	if m.skipForm != nil {
		body = m.skipForm.View()
	} else {
		body = theme.HelpStyle.Render("f fill response | s skip with reason")
	}

	panel := theme.LockPanelStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			banner,
			"",
			question,
			meta,
			countdown,
			"",
			body,
		),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// SetSize resizes the lock screen to the given dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
