// Package sync keeps the local signal cache fresh by polling the
// backend for the consumer's assigned signals.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvo/signaldesk/internal/api"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
)

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// SyncResultMsg is a tea.Msg sent when a refresh completes. The alert
// engine picks up new and edited signals on its next tick; this message
// only lets the UI re-render the list.
type SyncResultMsg struct {
	Signals []model.Signal
	Error   error

	// AuthExpired is set when the backend rejected the API token.
	AuthExpired bool
}

// Fetcher is the slice of the backend client the poller needs.
type Fetcher interface {
	FetchAssignedSignals(ctx context.Context, consumerEmail string) ([]model.Signal, error)
}

// Poller periodically refreshes the outstanding signal set.
type Poller struct {
	store    store.Store
	fetcher  Fetcher
	email    string
	interval time.Duration

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	wg        gosync.WaitGroup
}

// New creates a Poller refreshing every interval.
func New(s store.Store, fetcher Fetcher, consumerEmail string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		store:     s,
		fetcher:   fetcher,
		email:     consumerEmail,
		interval:  interval,
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that
// subscribes the Bubble Tea runtime to refresh results. Starting a
// running poller is a no-op; starting after a Stop relaunches the loop.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p.waitForResult()
	}
	// A previous Stop closed the channel; the new loop needs its own.
	p.stopCh = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.poll(p.stopCh)

	return p.waitForResult()
}

// Stop halts the polling goroutine. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Refresh triggers an immediate fetch.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// poll runs the refresh loop.
func (p *Poller) poll(stopCh <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial fetch immediately so the first render has data.
	p.fetchAndStore()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.fetchAndStore()
		case <-p.triggerCh:
			p.fetchAndStore()
		}
	}
}

// fetchAndStore performs one refresh: fetch, upsert, prune signals that
// disappeared server-side, and report the result to the UI.
func (p *Poller) fetchAndStore() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	signals, err := p.fetcher.FetchAssignedSignals(ctx, p.email)
	if err != nil {
		p.sendResult(SyncResultMsg{
			Error:       err,
			AuthExpired: api.IsAuthError(err),
		})
		return
	}

	if err := p.store.UpsertSignals(ctx, signals); err != nil {
		p.sendResult(SyncResultMsg{Error: err})
		return
	}

	ids := make([]string, len(signals))
	for i, sig := range signals {
		ids[i] = sig.ID
	}
	if err := p.store.DeleteSignalsNotIn(ctx, ids); err != nil {
		p.sendResult(SyncResultMsg{Error: err})
		return
	}

	p.sendResult(SyncResultMsg{Signals: signals})
}

// sendResult sends a SyncResultMsg without blocking the poll loop.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if the UI is not draining.
	}
}

// waitForResult returns a command that waits for the next refresh result.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult re-subscribes after a SyncResultMsg was processed.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
