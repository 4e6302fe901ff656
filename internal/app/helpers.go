package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvo/signaldesk/internal/model"
)

// signalWithDraft pairs a signal with its restored draft, if any.
type signalWithDraft struct {
	signal model.Signal
	draft  *model.Draft
}

// openRespond loads a signal and its saved draft, then opens the form.
func (m Model) openRespond(signalID string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx := context.Background()

		sig, err := s.GetSignalByID(ctx, signalID)
		if err != nil || sig == nil {
			return submitResultMsg{signalID: signalID,
				err: fmt.Errorf("signal %s not available", signalID)}
		}

		draft, err := s.GetDraft(ctx, signalID)
		if err != nil {
			draft = nil
		}

		return respondOpenedMsg{signal: signalWithDraft{signal: *sig, draft: draft}}
	}
}

// submitAnswer submits a typed response. Under an active persistent
// session the controller owns the resolution so the lock is released
// on the same path as every other exit; otherwise the submission goes
// straight through the boundary.
func (m Model) submitAnswer(signalID, text string) tea.Cmd {
	engine := m.engine
	s := m.store
	locked := m.locked

	return func() tea.Msg {
		ctx := context.Background()

		if locked {
			err := engine.Controller.SubmitAnswer(ctx, text)
			engine.Autosaver.Clear(ctx, signalID)
			return submitResultMsg{signalID: signalID, err: err}
		}

		sig, err := s.GetSignalByID(ctx, signalID)
		if err != nil || sig == nil {
			return submitResultMsg{signalID: signalID,
				err: fmt.Errorf("signal %s not available", signalID)}
		}

		err = engine.SubmitDirect(ctx, *sig, text)
		return submitResultMsg{signalID: signalID, err: err}
	}
}

// submitSkip resolves the active session with the user's skip reason.
func (m Model) submitSkip(reason string) tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		err := engine.Controller.SubmitSkip(context.Background(), reason)
		return submitResultMsg{err: err}
	}
}

// loadUnreadCount refreshes the unread notification badge.
func (m Model) loadUnreadCount() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		unread, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return unreadCountMsg{}
		}
		return unreadCountMsg{count: len(unread)}
	}
}

// markAllNotificationsRead clears the unread feed.
func (m Model) markAllNotificationsRead() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx := context.Background()
		unread, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			return unreadCountMsg{}
		}
		for _, n := range unread {
			_ = s.MarkNotificationRead(ctx, n.ID)
		}
		return unreadCountMsg{count: 0}
	}
}
