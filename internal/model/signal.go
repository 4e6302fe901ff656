package model

import "time"

// Signal is a time-boxed question published to a set of consumers.
// Signals are owned and mutated by the backend; this client only reads
// them and submits responses.
type Signal struct {
	// ID is the unique identifier for this signal.
	ID string `json:"id"`

	// Question is the text the consumer must answer.
	Question string `json:"question"`

	// PublisherName is the display name of the signal's author.
	PublisherName string `json:"publisher_name"`

	// Deadline is when the response window closes.
	Deadline time.Time `json:"deadline"`

	// Consumers holds the email addresses assigned to answer.
	Consumers []string `json:"consumers"`

	// IsPersistentFinalAlert marks signals that escalate to a
	// non-dismissible full-screen lock in their final minute.
	IsPersistentFinalAlert bool `json:"is_persistent_final_alert"`

	// DefaultResponse is recorded on the consumer's behalf when the
	// deadline passes unanswered or the device is locked/asleep.
	DefaultResponse string `json:"default_response"`

	// Answered reports whether the requesting consumer has already
	// submitted a response. Computed server-side per consumer.
	Answered bool `json:"answered"`

	// CreatedAt is when the signal was published.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the revision marker. It changes whenever the
	// publisher edits the signal and is used to detect updates.
	UpdatedAt time.Time `json:"updated_at"`
}

// MillisUntilDeadline returns the number of milliseconds between now and
// the deadline. Negative once the deadline has passed.
func (s Signal) MillisUntilDeadline(now time.Time) int64 {
	return s.Deadline.Sub(now).Milliseconds()
}

// MinutesUntilDeadline returns floor((deadline - now) / 1m). Negative
// once the deadline has passed.
func (s Signal) MinutesUntilDeadline(now time.Time) int {
	ms := s.MillisUntilDeadline(now)
	if ms < 0 {
		// Integer division truncates toward zero; floor instead.
		return int((ms - 59999) / 60000)
	}
	return int(ms / 60000)
}

// Expired reports whether the deadline has passed.
func (s Signal) Expired(now time.Time) bool {
	return !s.Deadline.After(now)
}

// RevisionKey returns the dedup key for "signal updated" notifications:
// a new key per (signal, edit revision).
func (s Signal) RevisionKey() string {
	return s.ID + ":" + s.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

// DeviceStatus is the host machine's lock/sleep state as reported by
// the host bridge.
type DeviceStatus string

const (
	DeviceActive DeviceStatus = "active"
	DeviceLocked DeviceStatus = "locked"
	DeviceSleep  DeviceStatus = "sleep"
)
