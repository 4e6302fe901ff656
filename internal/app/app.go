// Package app is the root Bubble Tea model: view routing, engine event
// handling, and lifecycle for the poller and the alert engine.
package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvo/signaldesk/internal/alert"
	"github.com/tvo/signaldesk/internal/keys"
	"github.com/tvo/signaldesk/internal/store"
	appsync "github.com/tvo/signaldesk/internal/sync"
	"github.com/tvo/signaldesk/internal/ui"
	"github.com/tvo/signaldesk/internal/ui/lockscreen"
	"github.com/tvo/signaldesk/internal/ui/respond"
	"github.com/tvo/signaldesk/internal/ui/signallist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewRespond
)

// unreadCountMsg carries the number of unread notifications to the header.
type unreadCountMsg struct {
	count int
}

// submitResultMsg reports the outcome of a response submission.
type submitResultMsg struct {
	signalID string
	err      error
}

// respondOpenedMsg carries the signal and restored draft for the form.
type respondOpenedMsg struct {
	signal signalWithDraft
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	store       store.Store
	keys        *keys.KeyMap

	signalList signallist.Model
	respond    respond.Model
	lockScreen lockscreen.Model

	engine *alert.Engine
	poller *appsync.Poller

	// locked mirrors the persistent alert session: while true the
	// primary window renders the lock screen (or the response form in
	// the filling sub-state) and nothing else.
	locked bool

	ready       bool
	unreadCount int
	statusLine  string
	authExpired bool
}

// New creates the root application model.
func New(s store.Store, engine *alert.Engine, poller *appsync.Poller) Model {
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewList,
		store:       s,
		keys:        k,
		signalList:  signallist.New(s, k, 80, 24),
		respond:     respond.New(k, 80, 24),
		lockScreen:  lockscreen.New(k, 80, 24),
		engine:      engine,
		poller:      poller,
	}
}

// Init starts the poller and the alert engine and loads the first data.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.signalList.Init(),
		m.loadUnreadCount(),
		m.poller.Start(),
		m.engine.Start(context.Background()),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.signalList.SetSize(w, h)
		m.respond.SetSize(w, h)
		m.lockScreen.SetSize(msg.Width, msg.Height)
		return m, nil

	// === Engine events ===

	case alert.LockEngagedMsg:
		m.locked = true
		m.lockScreen.Engage(msg.Signal)
		return m, m.engine.Scanner.WaitForNextEvent()

	case alert.LockReleasedMsg:
		m.locked = false
		m.lockScreen.Release()
		if m.currentView == ViewRespond && m.respond.Signal() != nil &&
			m.respond.Signal().ID == msg.SignalID {
			m.currentView = ViewList
		}
		return m, tea.Batch(
			m.signalList.LoadSignals(),
			m.engine.Scanner.WaitForNextEvent(),
		)

	case alert.AutoSubmittedMsg:
		if msg.Err != nil {
			m.statusLine = fmt.Sprintf("auto-submit for %q failed: %v; answer may not be recorded",
				msg.Response.SignalID, msg.Err)
		} else {
			m.statusLine = fmt.Sprintf("default response recorded (%s)", msg.Response.SkipReason)
		}
		return m, tea.Batch(
			m.signalList.LoadSignals(),
			m.engine.Scanner.WaitForNextEvent(),
		)

	case alert.ReminderFiredMsg:
		return m, tea.Batch(
			m.loadUnreadCount(),
			m.engine.Scanner.WaitForNextEvent(),
		)

	// === Poller results ===

	case appsync.SyncResultMsg:
		if msg.Error != nil {
			if msg.AuthExpired {
				m.authExpired = true
				m.statusLine = "authentication expired: update the API token and restart"
			} else {
				m.statusLine = fmt.Sprintf("refresh failed: %v", msg.Error)
			}
			return m, m.poller.WaitForNextResult()
		}
		m.authExpired = false
		return m, tea.Batch(
			m.signalList.LoadSignals(),
			m.poller.WaitForNextResult(),
		)

	// === View messages ===

	case signallist.SelectedSignalMsg:
		return m, m.openRespond(msg.SignalID)

	case respondOpenedMsg:
		m.currentView = ViewRespond
		return m, m.respond.Open(msg.signal.signal, msg.signal.draft)

	case respond.DraftChangedMsg:
		m.engine.Autosaver.SetDraft(msg.SignalID, msg.Text)
		return m, nil

	case respond.SubmitMsg:
		return m, m.submitAnswer(msg.SignalID, msg.Text)

	case respond.BackMsg:
		if m.locked {
			// Leaving the form under a lock returns to the alert, not
			// to the list; the kiosk restriction stays engaged. The
			// view must leave ViewRespond or the overlay never renders.
			if err := m.engine.Controller.ReturnToAlert(); err == nil {
				m.currentView = ViewList
				return m, nil
			}
		}
		m.currentView = ViewList
		return m, m.signalList.LoadSignals()

	case lockscreen.FillRequestedMsg:
		if err := m.engine.Controller.BeginFilling(); err != nil {
			return m, nil
		}
		return m, m.openRespond(msg.SignalID)

	case lockscreen.SkipSubmittedMsg:
		return m, m.submitSkip(msg.Reason)

	case submitResultMsg:
		if msg.err != nil {
			m.statusLine = fmt.Sprintf("submission failed: %v; answer may not be recorded", msg.err)
		} else {
			m.statusLine = "response submitted"
		}
		if !m.locked {
			m.currentView = ViewList
		}
		return m, m.signalList.LoadSignals()

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m.updateActiveView(msg)
}

// handleKeys routes keyboard input. While a persistent session is
// active only the lock screen (or the filling form) sees keys, with
// ctrl+c as the one global escape hatch that still runs the mandatory
// cleanup.
func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.shutdown()
	}

	if m.locked {
		return m.updateActiveView(msg)
	}

	switch {
	case msg.String() == "q" && m.currentView == ViewList:
		return m, m.shutdown()

	case msg.String() == "r" && m.currentView == ViewList:
		m.statusLine = "refreshing..."
		return m, m.poller.Refresh()

	case msg.String() == "n" && m.currentView == ViewList:
		return m, m.markAllNotificationsRead()
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards a message to the view that owns the screen.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.locked && m.currentView != ViewRespond {
		m.lockScreen, cmd = m.lockScreen.Update(msg)
		return m, cmd
	}

	switch m.currentView {
	case ViewRespond:
		m.respond, cmd = m.respond.Update(msg)
	default:
		m.signalList, cmd = m.signalList.Update(msg)
	}
	return m, cmd
}

// shutdown stops the timers, force-releases any host lock, and quits.
func (m Model) shutdown() tea.Cmd {
	m.poller.Stop()
	m.engine.Stop()
	return tea.Quit
}

// View renders the full terminal frame.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	// The lock screen replaces the whole frame: no header, no hints,
	// nothing that suggests the view can be left.
	if m.locked && m.currentView != ViewRespond {
		return m.lockScreen.View()
	}

	var content string
	switch m.currentView {
	case ViewRespond:
		content = m.respond.View()
	default:
		content = m.signalList.View()
	}

	status := m.statusLine
	if m.authExpired {
		status = "auth expired"
	}
	header := m.layout.RenderHeader(
		"signaldesk",
		fmt.Sprintf("%s  unread: %d", status, m.unreadCount),
	)
	hints := "enter open | r refresh | n mark read | q quit"
	if m.currentView == ViewRespond {
		hints = "ctrl+s submit | esc back"
	}

	return m.layout.RenderWithFrame(header, content, m.layout.RenderStatusBar(hints))
}
