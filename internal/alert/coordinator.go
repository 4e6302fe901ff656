package alert

import (
	"github.com/tvo/signaldesk/internal/host"
)

// LockCoordinator mirrors the persistent alert session's lock state to
// the host process so secondary-monitor windows can render a lock-out
// view, and pins the primary window while a session is active.
//
// Engage and Release always push both flags, including when the state
// did not change: the safety-cleanup path must be able to force the
// host back to unlocked no matter what the coordinator believes.
type LockCoordinator struct {
	windows host.WindowController
	engaged bool
}

// NewLockCoordinator wraps a host window controller.
func NewLockCoordinator(w host.WindowController) *LockCoordinator {
	return &LockCoordinator{windows: w}
}

// Engage mirrors "locked" to the host and pins the window.
func (l *LockCoordinator) Engage() {
	l.windows.SetPersistentAlertActive(true)
	l.windows.SetAlwaysOnTop(true)
	l.engaged = true
}

// Release mirrors "unlocked" to the host and unpins the window.
func (l *LockCoordinator) Release() {
	l.windows.SetPersistentAlertActive(false)
	l.windows.SetAlwaysOnTop(false)
	l.engaged = false
}

// Engaged reports the last state pushed to the host.
func (l *LockCoordinator) Engaged() bool { return l.engaged }
