package sync_test

import (
	"context"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tvo/signaldesk/internal/api"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/sync"
	"github.com/tvo/signaldesk/tests/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedFetcher returns canned fetch results, one per call, repeating
// the last one when exhausted.
type scriptedFetcher struct {
	mu      gosync.Mutex
	results [][]model.Signal
	errs    []error
	calls   int
}

func (f *scriptedFetcher) FetchAssignedSignals(ctx context.Context, consumerEmail string) ([]model.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i], f.errs[i]
}

func waitForResult(t *testing.T, p *sync.Poller) sync.SyncResultMsg {
	t.Helper()

	cmd := p.WaitForNextResult()
	resultCh := make(chan sync.SyncResultMsg, 1)
	go func() {
		if msg, ok := cmd().(sync.SyncResultMsg); ok {
			resultCh <- msg
		}
	}()

	select {
	case msg := <-resultCh:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no sync result delivered")
		return sync.SyncResultMsg{}
	}
}

func testSignal(id string, deadline time.Time) model.Signal {
	return model.Signal{
		ID:            id,
		Question:      "Ship the release?",
		PublisherName: "release-bot",
		Deadline:      deadline,
	}
}

func TestRefreshStoresAndPrunes(t *testing.T) {
	s := testutil.NewTestStore(t)
	deadline := time.Now().Add(time.Hour)

	fetcher := &scriptedFetcher{
		results: [][]model.Signal{
			{testSignal("sig-1", deadline), testSignal("sig-2", deadline)},
			{testSignal("sig-2", deadline)},
		},
		errs: []error{nil, nil},
	}

	p := sync.New(s, fetcher, "dev@example.com", time.Hour)
	p.Start()
	defer p.Stop()

	first := waitForResult(t, p)
	if first.Error != nil {
		t.Fatalf("first refresh failed: %v", first.Error)
	}
	if len(first.Signals) != 2 {
		t.Fatalf("expected two signals, got %+v", first.Signals)
	}

	ctx := context.Background()
	outstanding, err := s.GetOutstandingSignals(ctx)
	if err != nil {
		t.Fatalf("querying outstanding: %v", err)
	}
	if len(outstanding) != 2 {
		t.Fatalf("expected two cached signals, got %d", len(outstanding))
	}

	// sig-1 disappears server-side; the next refresh prunes it.
	p.Refresh()
	second := waitForResult(t, p)
	if second.Error != nil {
		t.Fatalf("second refresh failed: %v", second.Error)
	}

	outstanding, err = s.GetOutstandingSignals(ctx)
	if err != nil {
		t.Fatalf("re-querying outstanding: %v", err)
	}
	if len(outstanding) != 1 || outstanding[0].ID != "sig-2" {
		t.Fatalf("expected only sig-2 to survive, got %+v", outstanding)
	}
}

func TestFetchErrorKeepsCache(t *testing.T) {
	s := testutil.NewTestStore(t)
	deadline := time.Now().Add(time.Hour)

	fetcher := &scriptedFetcher{
		results: [][]model.Signal{
			{testSignal("sig-1", deadline)},
			nil,
		},
		errs: []error{nil, fmt.Errorf("backend unreachable")},
	}

	p := sync.New(s, fetcher, "dev@example.com", time.Hour)
	p.Start()
	defer p.Stop()

	if first := waitForResult(t, p); first.Error != nil {
		t.Fatalf("first refresh failed: %v", first.Error)
	}

	p.Refresh()
	second := waitForResult(t, p)
	if second.Error == nil {
		t.Fatal("expected fetch error to surface")
	}
	if second.AuthExpired {
		t.Error("network failure must not read as auth expiry")
	}

	// The cache keeps serving the last good fetch.
	outstanding, err := s.GetOutstandingSignals(context.Background())
	if err != nil {
		t.Fatalf("querying outstanding: %v", err)
	}
	if len(outstanding) != 1 {
		t.Errorf("expected cache untouched on fetch failure, got %d signals", len(outstanding))
	}
}

func TestAuthErrorFlagged(t *testing.T) {
	s := testutil.NewTestStore(t)

	fetcher := &scriptedFetcher{
		results: [][]model.Signal{nil},
		errs:    []error{&api.AuthError{Message: "token expired"}},
	}

	p := sync.New(s, fetcher, "dev@example.com", time.Hour)
	p.Start()
	defer p.Stop()

	result := waitForResult(t, p)
	if result.Error == nil {
		t.Fatal("expected error result")
	}
	if !result.AuthExpired {
		t.Error("expected AuthExpired flag for a rejected token")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	fetcher := &scriptedFetcher{
		results: [][]model.Signal{{}},
		errs:    []error{nil},
	}

	p := sync.New(s, fetcher, "dev@example.com", time.Hour)
	p.Start()
	waitForResult(t, p)

	p.Stop()
	p.Stop()
}
