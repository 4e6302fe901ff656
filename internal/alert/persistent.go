package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tvo/signaldesk/internal/host"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
)

// finalWindow is how close to the deadline a persistent signal must be
// before a session is armed.
const finalWindow = 60 * time.Second

// SessionState is the persistent alert state machine position.
type SessionState int

const (
	// StateIdle means no session exists.
	StateIdle SessionState = iota

	// StateArmed means a signal entered its final minute and the
	// device status query is in flight.
	StateArmed

	// StateActive means the full-screen lock is shown.
	StateActive

	// StateActiveFilling means the consumer opened the response form
	// from inside the lock. The lock-out mirroring stays engaged.
	StateActiveFilling
)

// Submitter is the submission boundary: it accepts a completed
// Response and hands it to the backend. Called exactly once per
// session resolution.
type Submitter interface {
	SubmitResponse(ctx context.Context, resp model.Response) error
}

// session is the at-most-one live persistent alert session.
type session struct {
	signal model.Signal

	// armSeq invalidates stale oracle resolutions: a resolution only
	// acts if the session that issued the query is still current.
	armSeq uint64
}

// Controller runs the persistent final alert state machine. At most one
// session may be Armed/Active at any instant across all signals; the
// invariant is enforced here, centrally, not per signal.
type Controller struct {
	mu sync.Mutex

	state   SessionState
	current *session
	seq     uint64

	store   store.Store
	oracle  host.DeviceStatusOracle
	locks   *LockCoordinator
	submit  Submitter
	drafts  *Autosaver
	clock   Clock
	email   string
	events  func(msg interface{})
}

// NewController creates an idle controller.
func NewController(
	s store.Store,
	oracle host.DeviceStatusOracle,
	locks *LockCoordinator,
	submit Submitter,
	drafts *Autosaver,
	clock Clock,
	consumerEmail string,
	events func(msg interface{}),
) *Controller {
	return &Controller{
		state:  StateIdle,
		store:  s,
		oracle: oracle,
		locks:  locks,
		submit: submit,
		drafts: drafts,
		clock:  clock,
		email:  consumerEmail,
		events: events,
	}
}

// State returns the current machine position.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentSignal returns the signal under the live session, or nil.
func (c *Controller) CurrentSignal() *model.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	sig := c.current.signal
	return &sig
}

// Evaluate advances the state machine for one scanner tick. outstanding
// is the full unanswered set; the controller picks its own candidates.
// Runs after threshold evaluation for the same tick, so a final-minute
// persistent signal still gets its 1-minute reminder.
func (c *Controller) Evaluate(ctx context.Context, now time.Time, outstanding []model.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		c.revalidateSessionLocked(now, outstanding)
	}
	if c.state != StateIdle {
		return
	}

	winner := pickCandidate(now, outstanding)
	if winner == nil {
		return
	}

	c.seq++
	c.current = &session{signal: *winner, armSeq: c.seq}
	c.state = StateArmed

	// One oracle round-trip per arming. The resolution re-checks the
	// world because the deadline may pass or the user may answer while
	// the query is in flight.
	go c.resolveArm(ctx, c.seq)
}

// revalidateSessionLocked aborts or releases the live session when its
// signal expired, was answered, disappeared, or was edited mid-session.
func (c *Controller) revalidateSessionLocked(now time.Time, outstanding []model.Signal) {
	sig := c.current.signal

	var live *model.Signal
	for i := range outstanding {
		if outstanding[i].ID == sig.ID {
			live = &outstanding[i]
			break
		}
	}

	switch {
	case live == nil:
		// Answered elsewhere or deleted server-side.
		c.endSessionLocked(ReleaseAborted)
	case live.Expired(now):
		c.endSessionLocked(ReleaseExpired)
	case !live.Deadline.Equal(sig.Deadline) || !live.UpdatedAt.Equal(sig.UpdatedAt):
		// Edited mid-session: abort and let the next tick start clean.
		c.endSessionLocked(ReleaseAborted)
	}
}

// pickCandidate returns the single persistent signal allowed to open a
// session this tick: inside the final window, earliest deadline wins,
// ties broken by id so the choice is deterministic.
func pickCandidate(now time.Time, outstanding []model.Signal) *model.Signal {
	var winner *model.Signal
	for i := range outstanding {
		sig := &outstanding[i]
		if !sig.IsPersistentFinalAlert || sig.Answered {
			continue
		}
		ms := sig.MillisUntilDeadline(now)
		if ms <= 0 || ms > finalWindow.Milliseconds() {
			continue
		}
		if winner == nil ||
			sig.Deadline.Before(winner.Deadline) ||
			(sig.Deadline.Equal(winner.Deadline) && sig.ID < winner.ID) {
			winner = sig
		}
	}
	return winner
}

// resolveArm handles the device status query result for an Armed
// session. Three outcomes: auto-resolve (locked/sleep), expired abort,
// or show the lock.
func (c *Controller) resolveArm(ctx context.Context, armSeq uint64) {
	status, err := c.oracle.QueryDeviceStatus(ctx)
	if err != nil {
		// Fail open: an unreachable oracle reads as an active device,
		// so the worst case is a lock the user can dismiss by
		// answering, never a wrong auto-submit.
		slog.Warn("device status query failed", "error", err)
		status = model.DeviceActive
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The session that issued this query may be gone.
	if c.state != StateArmed || c.current == nil || c.current.armSeq != armSeq {
		return
	}

	sig := c.current.signal
	now := c.clock.Now()

	if sig.Expired(now) {
		c.endSessionLocked(ReleaseExpired)
		return
	}

	if status == model.DeviceLocked || status == model.DeviceSleep {
		resp := c.buildResponseLocked(sig.DefaultResponse, true,
			fmt.Sprintf("Auto-submitted: Device was %s", status))
		submitErr := c.resolveWithResponseLocked(ctx, resp, ReleaseAutoSubmitted)
		c.emit(AutoSubmittedMsg{Response: resp, Err: submitErr})
		return
	}

	c.state = StateActive
	c.locks.Engage()
	c.emit(LockEngagedMsg{Signal: sig})
}

// BeginFilling moves Active -> ActiveFilling: the overlay is replaced
// by the response form while the lock-out mirroring stays engaged.
func (c *Controller) BeginFilling() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return fmt.Errorf("cannot open form: no active alert session")
	}
	c.state = StateActiveFilling
	return nil
}

// ReturnToAlert moves ActiveFilling back to Active without resolving.
func (c *Controller) ReturnToAlert() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActiveFilling {
		return fmt.Errorf("cannot return to alert: form is not open")
	}
	c.state = StateActive
	return nil
}

// SubmitSkip resolves an Active or ActiveFilling session with the
// default response and the user's skip reason, then unlocks.
func (c *Controller) SubmitSkip(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive && c.state != StateActiveFilling {
		return fmt.Errorf("cannot skip: no active alert session")
	}

	resp := c.buildResponseLocked(c.current.signal.DefaultResponse, true, reason)
	return c.resolveWithResponseLocked(ctx, resp, ReleaseSkipped)
}

// SubmitAnswer resolves an ActiveFilling session with a real,
// non-default response, then unlocks.
func (c *Controller) SubmitAnswer(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActiveFilling {
		return fmt.Errorf("cannot submit answer: form is not open")
	}

	resp := c.buildResponseLocked(text, false, "")
	return c.resolveWithResponseLocked(ctx, resp, ReleaseAnswered)
}

// CheckExpiry is the 5-second auto-dismiss pass: if the session's
// deadline silently passed (clock jump, missed ticks), force Idle and
// unlock.
func (c *Controller) CheckExpiry(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle || c.current == nil {
		return
	}
	if c.current.signal.Expired(now) {
		c.endSessionLocked(ReleaseExpired)
	}
}

// Teardown is the mandatory cleanup path for view unmount. It
// unconditionally mirrors "unlocked" and "unpinned" to the host, no
// matter what state the machine is in.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	hadSession := c.current != nil
	c.state = StateIdle
	c.current = nil

	// Always push both flags; a dangling locked host is the one
	// failure this path exists to prevent.
	c.locks.Release()

	if hadSession {
		c.emit(LockReleasedMsg{Reason: ReleaseTeardown})
	}
}

// buildResponseLocked constructs a Response for the live session's
// signal. Caller holds c.mu.
func (c *Controller) buildResponseLocked(text string, isDefault bool, skipReason string) model.Response {
	return model.Response{
		ID:            uuid.New().String(),
		SignalID:      c.current.signal.ID,
		ConsumerEmail: c.email,
		Response:      text,
		SubmittedAt:   c.clock.Now().UTC(),
		IsDefault:     isDefault,
		SkipReason:    skipReason,
	}
}

// resolveWithResponseLocked submits a response through the boundary and
// ends the session. The lock is released even when submission fails:
// a backend outage must not trap the user behind the overlay. The
// returned error is the submission failure, surfaced as a warning.
func (c *Controller) resolveWithResponseLocked(ctx context.Context, resp model.Response, reason ReleaseReason) error {
	submitErr := c.submit.SubmitResponse(ctx, resp)
	if submitErr != nil {
		slog.Warn("response submission failed; releasing lock anyway",
			"signal", resp.SignalID, "error", submitErr)
	}

	// Mark answered locally either way so the scanner stops alerting.
	if err := c.store.MarkSignalAnswered(ctx, resp.SignalID); err != nil {
		slog.Warn("marking signal answered", "signal", resp.SignalID, "error", err)
	}
	// Drops the autosaver's pending text too; a later flush must not
	// resurrect a draft for an answered signal.
	c.drafts.Clear(ctx, resp.SignalID)

	c.endSessionLocked(reason)
	return submitErr
}

// endSessionLocked returns the machine to Idle, releasing the host lock
// if the session ever engaged it. Caller holds c.mu.
func (c *Controller) endSessionLocked(reason ReleaseReason) {
	signalID := ""
	if c.current != nil {
		signalID = c.current.signal.ID
	}

	wasVisible := c.state == StateActive || c.state == StateActiveFilling
	c.state = StateIdle
	c.current = nil

	if wasVisible {
		c.locks.Release()
	}
	c.emit(LockReleasedMsg{SignalID: signalID, Reason: reason})
}

// emit forwards an engine event to the UI, if anyone is listening.
func (c *Controller) emit(msg interface{}) {
	if c.events != nil {
		c.events(msg)
	}
}
