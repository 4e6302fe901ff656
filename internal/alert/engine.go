package alert

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/tvo/signaldesk/internal/host"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
)

// Config holds the engine tunables.
type Config struct {
	// ConsumerEmail is the identity responses are submitted under.
	ConsumerEmail string

	// NotificationsEnabled toggles OS notification emission.
	NotificationsEnabled bool

	// DraftAutosaveInterval is the draft flush cadence.
	DraftAutosaveInterval time.Duration
}

// Engine bundles the scanner, its two consumers, and the draft
// autosaver behind one lifecycle.
type Engine struct {
	Scanner    *Scanner
	Notifier   *Notifier
	Controller *Controller
	Autosaver  *Autosaver

	store  store.Store
	submit Submitter
	clock  Clock
	email  string
}

// NewEngine wires the full alert engine against a store, a host bridge,
// and the submission boundary.
func NewEngine(s store.Store, bridge host.Bridge, submit Submitter, clock Clock, cfg Config) *Engine {
	var scanner *Scanner
	emit := func(msg interface{}) {
		if scanner != nil {
			scanner.Emit(msg)
		}
	}

	notifier := NewNotifier(s, bridge, clock, cfg.NotificationsEnabled, emit)
	locks := NewLockCoordinator(bridge)
	autosaver := NewAutosaver(s, cfg.DraftAutosaveInterval)
	controller := NewController(s, bridge, locks, submit, autosaver, clock, cfg.ConsumerEmail, emit)
	scanner = NewScanner(s, notifier, controller, clock)

	return &Engine{
		Scanner:    scanner,
		Notifier:   notifier,
		Controller: controller,
		Autosaver:  autosaver,
		store:      s,
		submit:     submit,
		clock:      clock,
		email:      cfg.ConsumerEmail,
	}
}

// SubmitDirect submits a typed response outside any persistent
// session: the ordinary respond-from-the-list flow. The signal is
// marked answered locally even when the boundary fails, so the scanner
// stops alerting; the error is surfaced as a warning upstream.
func (e *Engine) SubmitDirect(ctx context.Context, sig model.Signal, text string) error {
	resp := model.Response{
		ID:            uuid.New().String(),
		SignalID:      sig.ID,
		ConsumerEmail: e.email,
		Response:      text,
		SubmittedAt:   e.clock.Now().UTC(),
	}

	submitErr := e.submit.SubmitResponse(ctx, resp)
	if submitErr != nil {
		slog.Warn("direct submission failed", "signal", sig.ID, "error", submitErr)
	}

	if err := e.store.MarkSignalAnswered(ctx, sig.ID); err != nil {
		slog.Warn("marking signal answered", "signal", sig.ID, "error", err)
	}
	e.Autosaver.Clear(ctx, sig.ID)
	e.Notifier.Progress().Discard(sig.ID)

	return submitErr
}

// Start launches all engine timers and returns the event subscription
// command for the Bubble Tea runtime.
func (e *Engine) Start(ctx context.Context) tea.Cmd {
	e.Autosaver.Start(ctx)
	return e.Scanner.Start(ctx)
}

// Stop halts every timer and force-releases any host lock. This is the
// mandatory unmount path.
func (e *Engine) Stop() {
	e.Autosaver.Stop()
	e.Scanner.Stop()
}
