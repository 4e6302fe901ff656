package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvo/signaldesk/internal/store"
)

const (
	// scanInterval is the deadline re-evaluation cadence.
	scanInterval = time.Second

	// expiryCheckInterval is the slower auto-dismiss pass that catches
	// deadlines skipped over by a clock jump.
	expiryCheckInterval = 5 * time.Second
)

// Scanner is the top-level driver: on every tick it reloads the
// outstanding set and feeds each signal to the threshold notifier and
// then to the persistent alert controller. It performs no notification
// or submission I/O itself.
type Scanner struct {
	store      store.Store
	notifier   *Notifier
	controller *Controller
	clock      Clock

	eventCh chan tea.Msg
	stopCh  chan struct{}
	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewScanner wires the scanner to its two consumers.
func NewScanner(s store.Store, n *Notifier, c *Controller, clock Clock) *Scanner {
	return &Scanner{
		store:      s,
		notifier:   n,
		controller: c,
		clock:      clock,
		eventCh:    make(chan tea.Msg, 32),
		stopCh:     make(chan struct{}),
	}
}

// Emit queues an engine event for the UI without blocking; events are
// dropped when the UI is not draining.
func (s *Scanner) Emit(msg tea.Msg) {
	select {
	case s.eventCh <- msg:
	default:
	}
}

// Start launches the 1-second scan loop and the 5-second expiry check.
// The returned command subscribes the Bubble Tea runtime to engine
// events. Starting a running scanner is a no-op; starting after a Stop
// relaunches the loop.
func (s *Scanner) Start(ctx context.Context) tea.Cmd {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return s.waitForEvent()
	}
	// A previous Stop closed the channel; the new loop needs its own.
	s.stopCh = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, s.stopCh)

	return s.waitForEvent()
}

// Stop halts the timers and tears down any live persistent session,
// forcing the host back to unlocked. Safe to call more than once.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	// Mandatory cleanup: never leave the host pinned always-on-top.
	s.controller.Teardown()
}

// run owns the two tickers for the life of the scanner.
func (s *Scanner) run(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	scanTicker := time.NewTicker(scanInterval)
	defer scanTicker.Stop()
	expiryTicker := time.NewTicker(expiryCheckInterval)
	defer expiryTicker.Stop()

	// Evaluate immediately so signals outstanding at startup are not
	// invisible for a full tick.
	s.Tick(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-scanTicker.C:
			s.Tick(ctx)
		case <-expiryTicker.C:
			s.controller.CheckExpiry(s.clock.Now())
		}
	}
}

// Tick runs one full evaluation pass. Exported so tests can drive the
// engine with a manual clock instead of real timers.
func (s *Scanner) Tick(ctx context.Context) {
	now := s.clock.Now()

	outstanding, err := s.store.GetOutstandingSignals(ctx)
	if err != nil {
		slog.Warn("loading outstanding signals", "error", err)
		return
	}

	// Thresholds first, per signal, so a final-minute persistent
	// signal still receives its 1-minute reminder on the tick that
	// arms its session.
	keep := make(map[string]bool, len(outstanding))
	for _, sig := range outstanding {
		keep[sig.ID] = true
		s.notifier.EvaluateSignal(ctx, now, sig)
	}

	// Drop reminder progress for signals that left the outstanding set.
	s.notifier.Progress().Retain(keep)

	s.controller.Evaluate(ctx, now, outstanding)
}

// waitForEvent returns a command that blocks on the next engine event
// and re-subscribes afterwards from the app's Update.
func (s *Scanner) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.eventCh
		if !ok {
			return nil
		}
		return msg
	}
}

// WaitForNextEvent re-subscribes after an engine event was processed.
func (s *Scanner) WaitForNextEvent() tea.Cmd {
	return s.waitForEvent()
}
