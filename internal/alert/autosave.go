package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
)

// Autosaver persists in-progress response text on a slow cadence,
// independent of the 1-second alert tick, so typing does not turn into
// a write per keystroke.
type Autosaver struct {
	store    store.Store
	interval time.Duration

	mu       sync.Mutex
	signalID string
	text     string
	dirty    bool

	stopCh  chan struct{}
	running bool
	wg      sync.WaitGroup
}

// NewAutosaver creates an Autosaver flushing every interval.
func NewAutosaver(s store.Store, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Autosaver{
		store:    s,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// SetDraft records the current text for the signal open in the
// response form. The write happens on the next flush tick.
func (a *Autosaver) SetDraft(signalID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.signalID == signalID && a.text == text {
		return
	}
	a.signalID = signalID
	a.text = text
	a.dirty = true
}

// Clear forgets any pending text and deletes the persisted draft.
// Called immediately after a successful submission.
func (a *Autosaver) Clear(ctx context.Context, signalID string) {
	a.mu.Lock()
	if a.signalID == signalID {
		a.signalID = ""
		a.text = ""
		a.dirty = false
	}
	a.mu.Unlock()

	if err := a.store.DeleteDraft(ctx, signalID); err != nil {
		slog.Warn("clearing draft", "signal", signalID, "error", err)
	}
}

// Start launches the flush loop. Starting a running autosaver is a
// no-op; starting after a Stop relaunches the loop.
func (a *Autosaver) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	// A previous Stop closed the channel; the new loop needs its own.
	a.stopCh = make(chan struct{})
	a.running = true
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(ctx, a.stopCh)
}

// Stop halts the flush loop after writing any pending draft.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.running = false
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *Autosaver) run(ctx context.Context, stopCh <-chan struct{}) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			a.Flush(ctx)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Flush(ctx)
		}
	}
}

// Flush writes the pending draft, if any. Exported so tests and the
// submit path can force a write without waiting for the ticker.
func (a *Autosaver) Flush(ctx context.Context) {
	a.mu.Lock()
	if !a.dirty || a.signalID == "" {
		a.mu.Unlock()
		return
	}
	draft := model.Draft{
		SignalID: a.signalID,
		Text:     a.text,
		SavedAt:  time.Now().UTC(),
	}
	a.dirty = false
	a.mu.Unlock()

	if err := a.store.SaveDraft(ctx, draft); err != nil {
		slog.Warn("autosaving draft", "signal", draft.SignalID, "error", err)
	}
}
