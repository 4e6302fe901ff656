package alert

import (
	"github.com/tvo/signaldesk/internal/model"
)

// ReleaseReason explains why a persistent alert session ended.
type ReleaseReason string

const (
	// ReleaseAnswered means the consumer submitted a real response.
	ReleaseAnswered ReleaseReason = "answered"

	// ReleaseSkipped means the consumer supplied a skip reason.
	ReleaseSkipped ReleaseReason = "skipped"

	// ReleaseAutoSubmitted means the engine answered with the default
	// because the device was locked or asleep.
	ReleaseAutoSubmitted ReleaseReason = "auto_submitted"

	// ReleaseExpired means the deadline passed during the session.
	ReleaseExpired ReleaseReason = "expired"

	// ReleaseAborted means the signal was edited or left the
	// outstanding set mid-session.
	ReleaseAborted ReleaseReason = "aborted"

	// ReleaseTeardown means the hosting view unmounted.
	ReleaseTeardown ReleaseReason = "teardown"
)

// LockEngagedMsg is sent when a persistent alert session becomes
// Active and the full-screen lock must be rendered.
type LockEngagedMsg struct {
	Signal model.Signal
}

// LockReleasedMsg is sent when a persistent alert session ends for any
// reason and the lock view must be torn down.
type LockReleasedMsg struct {
	SignalID string
	Reason   ReleaseReason
}

// AutoSubmittedMsg is sent after an Armed session auto-resolved with a
// default response. Err is non-nil when the submission boundary failed;
// the lock was released regardless.
type AutoSubmittedMsg struct {
	Response model.Response
	Err      error
}

// ReminderFiredMsg is sent after any notification emission so the UI
// can refresh its unread feed.
type ReminderFiredMsg struct {
	Notification model.Notification
}
