package respond

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tvo/signaldesk/internal/keys"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/theme"
)

// BackMsg signals the parent to navigate away from the form.
type BackMsg struct{}

// SubmitMsg signals the parent to submit the typed response.
type SubmitMsg struct {
	SignalID string
	Text     string
}

// DraftChangedMsg notifies the parent that the form text changed, so
// the autosaver can pick it up on its next flush.
type DraftChangedMsg struct {
	SignalID string
	Text     string
}

// submitBinding submits the form; the plain enter key stays available
// for newlines inside the textarea.
var submitBinding = key.NewBinding(
	key.WithKeys("ctrl+s"),
	key.WithHelp("ctrl+s", "submit"),
)

// Model is the response form view.
type Model struct {
	signal   *model.Signal
	textarea textarea.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new response form model.
func New(k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your response..."
	ta.SetWidth(width - 6)
	ta.SetHeight(8)

	return Model{
		textarea: ta,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Open initializes the form for a signal, restoring any saved draft.
func (m *Model) Open(sig model.Signal, draft *model.Draft) tea.Cmd {
	m.signal = &sig
	if draft != nil {
		m.textarea.SetValue(draft.Text)
	} else {
		m.textarea.SetValue("")
	}
	return m.textarea.Focus()
}

// Signal returns the signal the form is open for, or nil.
func (m Model) Signal() *model.Signal {
	return m.signal
}

// Update handles messages for the response form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.signal == nil {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, submitBinding):
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" {
				return m, nil
			}
			id := m.signal.ID
			return m, func() tea.Msg {
				return SubmitMsg{SignalID: id, Text: text}
			}

		case key.Matches(keyMsg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		}
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)

	if after := m.textarea.Value(); after != before {
		id := m.signal.ID
		return m, tea.Batch(cmd, func() tea.Msg {
			return DraftChangedMsg{SignalID: id, Text: after}
		})
	}
	return m, cmd
}

// View renders the response form.
func (m Model) View() string {
	if m.signal == nil {
		return ""
	}

	header := theme.HeaderStyle.Render(fmt.Sprintf("Respond: %s", m.signal.Question))
	meta := theme.HelpStyle.Render(fmt.Sprintf(
		"from %s, due %s",
		m.signal.PublisherName,
		m.signal.Deadline.Local().Format("15:04"),
	))
	countdown := theme.DeadlineStyle(m.signal.MinutesUntilDeadline(time.Now())).
		Render(fmt.Sprintf("%d minutes left", m.signal.MinutesUntilDeadline(time.Now())))
	hints := theme.HelpStyle.Render("ctrl+s submit | esc back")

	return theme.DetailPanelStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			header,
			meta,
			countdown,
			"",
			m.textarea.View(),
			"",
			hints,
		),
	)
}

// SetSize resizes the form to the given dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.textarea.SetWidth(width - 6)
}
