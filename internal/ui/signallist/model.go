package signallist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvo/signaldesk/internal/keys"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
	"github.com/tvo/signaldesk/internal/theme"
)

// SignalsLoadedMsg is sent when the outstanding set has been loaded
// from the store.
type SignalsLoadedMsg struct {
	Signals []model.Signal
}

// SelectedSignalMsg is sent when the user opens a signal to respond.
type SelectedSignalMsg struct {
	SignalID string
}

// Model is the outstanding signal list view.
type Model struct {
	list   list.Model
	store  store.Store
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates a new signal list model.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), width, height-2)
	l.Title = "Outstanding signals"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  s,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the initial outstanding set.
func (m Model) Init() tea.Cmd {
	return m.LoadSignals()
}

// LoadSignals returns a command that reads the outstanding set from
// the store.
func (m Model) LoadSignals() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		signals, err := s.GetOutstandingSignals(context.Background())
		if err != nil {
			return SignalsLoadedMsg{}
		}
		return SignalsLoadedMsg{Signals: signals}
	}
}

// Update handles messages for the signal list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SignalsLoadedMsg:
		now := time.Now()
		items := make([]list.Item, len(msg.Signals))
		for i, sig := range msg.Signals {
			items[i] = SignalItem{Signal: sig, Now: now}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			if item, ok := m.list.SelectedItem().(SignalItem); ok {
				id := item.Signal.ID
				return m, func() tea.Msg {
					return SelectedSignalMsg{SignalID: id}
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the signal list.
func (m Model) View() string {
	return m.list.View()
}

// SetSize resizes the list to the given dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
