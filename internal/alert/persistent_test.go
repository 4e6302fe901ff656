package alert_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tvo/signaldesk/internal/alert"
	"github.com/tvo/signaldesk/internal/host"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
	"github.com/tvo/signaldesk/tests/testutil"
)

// fakeSubmitter records responses crossing the submission boundary.
type fakeSubmitter struct {
	mu        sync.Mutex
	responses []model.Response
	err       error
}

func (f *fakeSubmitter) SubmitResponse(ctx context.Context, resp model.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSubmitter) all() []model.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Response, len(f.responses))
	copy(out, f.responses)
	return out
}

// controllerFixture wires a controller against fakes and an in-memory
// store.
type controllerFixture struct {
	store      store.Store
	bridge     *host.Fake
	submitter  *fakeSubmitter
	autosaver  *alert.Autosaver
	clock      *alert.ManualClock
	controller *alert.Controller
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	submitter := &fakeSubmitter{}
	autosaver := alert.NewAutosaver(s, time.Hour)
	clock := alert.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	controller := alert.NewController(
		s, bridge, alert.NewLockCoordinator(bridge),
		submitter, autosaver, clock, "dev@example.com", nil,
	)

	return &controllerFixture{
		store:      s,
		bridge:     bridge,
		submitter:  submitter,
		autosaver:  autosaver,
		clock:      clock,
		controller: controller,
	}
}

// waitForState polls until the controller reaches the wanted state; the
// arm resolution runs on its own goroutine.
func waitForState(t *testing.T, c *alert.Controller, want alert.SessionState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("controller never reached state %d (current %d)", want, c.State())
}

func persistentSignal(id string, deadline time.Time) model.Signal {
	sig := newTestSignal(id, deadline)
	sig.IsPersistentFinalAlert = true
	return sig
}

func TestAutoResolveWhenDeviceLocked(t *testing.T) {
	f := newControllerFixture(t)
	f.bridge.Status = model.DeviceLocked
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(59*time.Second))

	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateIdle)

	responses := f.submitter.all()
	if len(responses) != 1 {
		t.Fatalf("expected exactly one auto-submitted response, got %d", len(responses))
	}
	resp := responses[0]
	if !resp.IsDefault {
		t.Error("expected auto-submitted response to be marked default")
	}
	if resp.Response != sig.DefaultResponse {
		t.Errorf("expected default response text, got %q", resp.Response)
	}
	if resp.SkipReason != "Auto-submitted: Device was locked" {
		t.Errorf("unexpected skip reason: %q", resp.SkipReason)
	}

	// The overlay never rendered: no lock mirroring happened.
	if len(f.bridge.PersistentAlertCalls) != 0 {
		t.Errorf("expected no lock mirroring for auto-resolve, got %v", f.bridge.PersistentAlertCalls)
	}
}

func TestAutoResolveWhenDeviceAsleep(t *testing.T) {
	f := newControllerFixture(t)
	f.bridge.Status = model.DeviceSleep
	ctx := context.Background()

	now := f.clock.Now()
	f.controller.Evaluate(ctx, now, []model.Signal{persistentSignal("sig-1", now.Add(30*time.Second))})
	waitForState(t, f.controller, alert.StateIdle)

	responses := f.submitter.all()
	if len(responses) != 1 || responses[0].SkipReason != "Auto-submitted: Device was sleep" {
		t.Errorf("expected sleep auto-submit, got %+v", responses)
	}
}

func TestActiveDeviceShowsLock(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))

	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	if !f.bridge.PersistentAlertActive {
		t.Error("expected lock mirrored to host")
	}
	if !f.bridge.AlwaysOnTop {
		t.Error("expected window pinned always-on-top")
	}
	if len(f.submitter.all()) != 0 {
		t.Error("expected no submission while the lock is showing")
	}
}

func TestNoSessionOutsideFinalWindow(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	outside := persistentSignal("far", now.Add(2*time.Minute))
	expired := persistentSignal("past", now.Add(-time.Second))
	ordinary := newTestSignal("plain", now.Add(30*time.Second))

	f.controller.Evaluate(ctx, now, []model.Signal{outside, expired, ordinary})

	if f.controller.State() != alert.StateIdle {
		t.Errorf("expected Idle with no eligible candidates, got %d", f.controller.State())
	}
}

// gatedOracle blocks the device status query until released, so tests
// can change the world while the query is in flight.
type gatedOracle struct {
	release chan struct{}
	status  model.DeviceStatus
}

func (g *gatedOracle) QueryDeviceStatus(ctx context.Context) (model.DeviceStatus, error) {
	<-g.release
	return g.status, nil
}

func TestExpiryDuringOracleQueryAborts(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	submitter := &fakeSubmitter{}
	clock := alert.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	oracle := &gatedOracle{release: make(chan struct{}), status: model.DeviceLocked}

	controller := alert.NewController(
		s, oracle, alert.NewLockCoordinator(bridge),
		submitter, alert.NewAutosaver(s, time.Hour), clock, "dev@example.com", nil,
	)
	t.Cleanup(controller.Teardown)
	ctx := context.Background()

	now := clock.Now()
	sig := persistentSignal("sig-1", now.Add(10*time.Second))

	// The deadline passes while the query is in flight, so even a
	// locked-device verdict must not auto-submit.
	controller.Evaluate(ctx, now, []model.Signal{sig})
	clock.Advance(11 * time.Second)
	close(oracle.release)
	waitForState(t, controller, alert.StateIdle)

	if len(submitter.all()) != 0 {
		t.Error("expected no submission when the deadline passed mid-query")
	}
	if bridge.PersistentAlertActive {
		t.Error("expected no lock after mid-query expiry")
	}
}

func TestOracleFailureFailsOpenToLock(t *testing.T) {
	f := newControllerFixture(t)
	f.bridge.StatusErr = fmt.Errorf("session bus gone")
	ctx := context.Background()

	now := f.clock.Now()
	f.controller.Evaluate(ctx, now, []model.Signal{persistentSignal("sig-1", now.Add(45*time.Second))})
	waitForState(t, f.controller, alert.StateActive)

	// Fail open means no auto-submit on a broken oracle.
	if len(f.submitter.all()) != 0 {
		t.Error("expected no auto-submit when the oracle fails")
	}
}

func TestSingleSessionAcrossSimultaneousCandidates(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	later := persistentSignal("zz-later", now.Add(50*time.Second))
	sooner := persistentSignal("aa-sooner", now.Add(40*time.Second))

	f.controller.Evaluate(ctx, now, []model.Signal{later, sooner})
	waitForState(t, f.controller, alert.StateActive)

	current := f.controller.CurrentSignal()
	if current == nil || current.ID != "aa-sooner" {
		t.Fatalf("expected earliest deadline to win, got %+v", current)
	}

	// Further ticks must not open a second session.
	f.controller.Evaluate(ctx, now.Add(time.Second), []model.Signal{later, sooner})
	if got := f.controller.CurrentSignal(); got == nil || got.ID != "aa-sooner" {
		t.Errorf("expected session to stay with the winner, got %+v", got)
	}

	// Exactly one engage was mirrored.
	engaged := 0
	for _, v := range f.bridge.PersistentAlertCalls {
		if v {
			engaged++
		}
	}
	if engaged != 1 {
		t.Errorf("expected one lock engage, got %d", engaged)
	}
}

func TestSkipWithReasonUnlocks(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))
	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	if err := f.controller.SubmitSkip(ctx, "in a meeting"); err != nil {
		t.Fatalf("submitting skip: %v", err)
	}

	responses := f.submitter.all()
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %d", len(responses))
	}
	if !responses[0].IsDefault || responses[0].SkipReason != "in a meeting" {
		t.Errorf("unexpected skip response: %+v", responses[0])
	}
	if f.controller.State() != alert.StateIdle {
		t.Error("expected Idle after skip")
	}
	if f.bridge.PersistentAlertActive || f.bridge.AlwaysOnTop {
		t.Error("expected lock released after skip")
	}
}

func TestFillFlowKeepsLockUntilAnswer(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))
	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	if err := f.controller.BeginFilling(); err != nil {
		t.Fatalf("beginning fill: %v", err)
	}
	if f.controller.State() != alert.StateActiveFilling {
		t.Fatalf("expected ActiveFilling, got %d", f.controller.State())
	}

	// The kiosk restriction stays engaged while the form is open.
	if !f.bridge.PersistentAlertActive {
		t.Error("expected lock-out to remain mirrored during filling")
	}

	// Navigating back re-shows the alert without resolving.
	if err := f.controller.ReturnToAlert(); err != nil {
		t.Fatalf("returning to alert: %v", err)
	}
	if f.controller.State() != alert.StateActive {
		t.Fatalf("expected Active after return, got %d", f.controller.State())
	}

	// Fill again and submit a real answer.
	if err := f.controller.BeginFilling(); err != nil {
		t.Fatalf("re-beginning fill: %v", err)
	}
	if err := f.controller.SubmitAnswer(ctx, "ship it"); err != nil {
		t.Fatalf("submitting answer: %v", err)
	}

	responses := f.submitter.all()
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %d", len(responses))
	}
	if responses[0].IsDefault || responses[0].Response != "ship it" {
		t.Errorf("expected real answer, got %+v", responses[0])
	}
	if f.bridge.PersistentAlertActive || f.bridge.AlwaysOnTop {
		t.Error("expected lock released after answering")
	}
}

func TestSubmissionFailureStillReleasesLock(t *testing.T) {
	f := newControllerFixture(t)
	f.submitter.err = fmt.Errorf("backend down")
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))
	if err := f.store.UpsertSignals(ctx, []model.Signal{sig}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	err := f.controller.SubmitSkip(ctx, "in a meeting")
	if err == nil {
		t.Fatal("expected submission error to surface")
	}
	if f.controller.State() != alert.StateIdle {
		t.Error("expected Idle despite backend failure")
	}
	if f.bridge.PersistentAlertActive || f.bridge.AlwaysOnTop {
		t.Error("expected lock released despite backend failure")
	}

	// Answered locally so the scanner stops alerting.
	got, _ := f.store.GetSignalByID(ctx, "sig-1")
	if got == nil || !got.Answered {
		t.Error("expected signal marked answered locally")
	}
}

func TestResolutionClearsPendingDraft(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))
	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	// Text typed but not yet flushed when the skip resolves the session.
	f.autosaver.SetDraft("sig-1", "half-typed answer")

	if err := f.controller.SubmitSkip(ctx, "in a meeting"); err != nil {
		t.Fatalf("submitting skip: %v", err)
	}

	// A later flush must not resurrect a draft for the answered signal.
	f.autosaver.Flush(ctx)

	draft, err := f.store.GetDraft(ctx, "sig-1")
	if err != nil {
		t.Fatalf("loading draft: %v", err)
	}
	if draft != nil {
		t.Errorf("expected no draft after resolution, got %+v", draft)
	}
}

func TestDeadlineEditAbortsSession(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))
	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	// Publisher extends the deadline mid-session.
	edited := sig
	edited.Deadline = now.Add(time.Hour)
	edited.UpdatedAt = now
	f.controller.Evaluate(ctx, now.Add(time.Second), []model.Signal{edited})

	if f.controller.State() != alert.StateIdle {
		t.Errorf("expected session aborted on edit, got state %d", f.controller.State())
	}
	if f.bridge.PersistentAlertActive {
		t.Error("expected lock released on abort")
	}
	if len(f.submitter.all()) != 0 {
		t.Error("expected no submission on abort")
	}
}

func TestAutoDismissOnClockJump(t *testing.T) {
	f := newControllerFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	sig := persistentSignal("sig-1", now.Add(45*time.Second))
	f.controller.Evaluate(ctx, now, []model.Signal{sig})
	waitForState(t, f.controller, alert.StateActive)

	// The wall clock jumps past the deadline between scanner ticks;
	// the 5-second check catches it.
	f.clock.Advance(10 * time.Minute)
	f.controller.CheckExpiry(f.clock.Now())

	if f.controller.State() != alert.StateIdle {
		t.Errorf("expected forced Idle after clock jump, got %d", f.controller.State())
	}
	if f.bridge.PersistentAlertActive || f.bridge.AlwaysOnTop {
		t.Error("expected unlock after clock jump")
	}
}

func TestTeardownAlwaysUnlocks(t *testing.T) {
	for _, setup := range []struct {
		name    string
		prepare func(t *testing.T, f *controllerFixture)
	}{
		{"while idle", func(t *testing.T, f *controllerFixture) {}},
		{"while active", func(t *testing.T, f *controllerFixture) {
			now := f.clock.Now()
			sig := persistentSignal("sig-1", now.Add(45*time.Second))
			f.controller.Evaluate(context.Background(), now, []model.Signal{sig})
			waitForState(t, f.controller, alert.StateActive)
		}},
		{"while filling", func(t *testing.T, f *controllerFixture) {
			now := f.clock.Now()
			sig := persistentSignal("sig-1", now.Add(45*time.Second))
			f.controller.Evaluate(context.Background(), now, []model.Signal{sig})
			waitForState(t, f.controller, alert.StateActive)
			if err := f.controller.BeginFilling(); err != nil {
				t.Fatalf("beginning fill: %v", err)
			}
		}},
	} {
		t.Run(setup.name, func(t *testing.T) {
			f := newControllerFixture(t)
			setup.prepare(t, f)

			f.controller.Teardown()

			calls := f.bridge.PersistentAlertCalls
			if len(calls) == 0 || calls[len(calls)-1] {
				t.Errorf("expected final persistent-alert call to be false, got %v", calls)
			}
			pins := f.bridge.AlwaysOnTopCalls
			if len(pins) == 0 || pins[len(pins)-1] {
				t.Errorf("expected final always-on-top call to be false, got %v", pins)
			}
			if f.controller.State() != alert.StateIdle {
				t.Error("expected Idle after teardown")
			}
		})
	}
}
